package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	StudiesDir string `mapstructure:"studies_dir" yaml:"studies_dir"`
	DateLayout string `mapstructure:"date_layout" yaml:"date_layout"`

	// Lag engine defaults
	Lags              []int    `mapstructure:"lags" yaml:"lags"`
	PondVars          []string `mapstructure:"pond_vars" yaml:"pond_vars"`
	WeatherVars       []string `mapstructure:"weather_vars" yaml:"weather_vars"`
	SignificanceLevel float64  `mapstructure:"significance_level" yaml:"significance_level"`
	Workers           int      `mapstructure:"workers" yaml:"workers"`

	// Same-day matrix
	NormalityAlpha float64 `mapstructure:"normality_alpha" yaml:"normality_alpha"`

	// Preprocessing
	SumColumns     []string `mapstructure:"sum_columns" yaml:"sum_columns"`
	LocationPrefix int      `mapstructure:"location_prefix" yaml:"location_prefix"`
	// Header unit conversions as "from=to" pairs, e.g. "g/L=mg/L".
	UnitTargets []string `mapstructure:"unit_targets" yaml:"unit_targets"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	ResultsDB string `mapstructure:"results_db" yaml:"results_db"`
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".pondstat"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.pondstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PONDSTAT")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("date_layout", "02.01.2006")
	v.SetDefault("lags", []int{-14, -7, -3, -2, -1, 0, 1, 2, 3, 7, 14})
	v.SetDefault("pond_vars", []string{"Nitrat", "Phosphor", "NPOC", "Temp", "LF", "PPM", "pH"})
	v.SetDefault("weather_vars", []string{"Ta_2m", "PCP"})
	v.SetDefault("significance_level", 0.05)
	v.SetDefault("workers", 1)
	v.SetDefault("normality_alpha", 0.05)
	v.SetDefault("sum_columns", []string{"PCP"})
	v.SetDefault("location_prefix", 2)
	v.SetDefault("unit_targets", dataset.DefaultUnitTargets)
	v.SetDefault("log_level", "info")
	v.SetDefault("results_db", "")
	v.SetDefault("studies_dir", "")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve studies_dir default: ~/.pondstat/studies
	if c.StudiesDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.StudiesDir = filepath.Join(dir, "studies")
	}
	return &c, nil
}
