package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/pondstat-cli/internal/config"
	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set pondstat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("studies_dir: %s\n", cfg.StudiesDir)
		fmt.Printf("date_layout: %s\n", cfg.DateLayout)
		fmt.Printf("lags: %s\n", joinInts(cfg.Lags))
		fmt.Printf("pond_vars: %s\n", strings.Join(cfg.PondVars, ","))
		fmt.Printf("weather_vars: %s\n", strings.Join(cfg.WeatherVars, ","))
		fmt.Printf("sum_columns: %s\n", strings.Join(cfg.SumColumns, ","))
		fmt.Printf("unit_targets: %s\n", strings.Join(cfg.UnitTargets, ","))
		fmt.Printf("significance_level: %g\n", cfg.SignificanceLevel)
		fmt.Printf("normality_alpha: %g\n", cfg.NormalityAlpha)
		fmt.Printf("location_prefix: %d\n", cfg.LocationPrefix)
		fmt.Printf("workers: %d\n", cfg.Workers)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		if cfg.ResultsDB != "" {
			fmt.Printf("results_db: %s\n", cfg.ResultsDB)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "studies_dir":
			cfg.StudiesDir = val
		case "date_layout":
			cfg.DateLayout = val
		case "lags":
			lags, err := parseInts(val)
			if err != nil || len(lags) == 0 {
				return fmt.Errorf("invalid lags: %s (use e.g. -7,0,7)", val)
			}
			cfg.Lags = lags
		case "pond_vars":
			cfg.PondVars = splitList(val)
		case "weather_vars":
			cfg.WeatherVars = splitList(val)
		case "sum_columns":
			cfg.SumColumns = splitList(val)
		case "unit_targets":
			targets := splitList(val)
			if _, err := dataset.ParseUnitTargets(targets); err != nil {
				return err
			}
			cfg.UnitTargets = targets
		case "significance_level", "normality_alpha":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 || f >= 1 {
				return fmt.Errorf("invalid %s: %v (must be in (0,1))", key, val)
			}
			if key == "significance_level" {
				cfg.SignificanceLevel = f
			} else {
				cfg.NormalityAlpha = f
			}
		case "location_prefix", "workers":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			if key == "workers" {
				cfg.Workers = i
			} else {
				cfg.LocationPrefix = i
			}
		case "log_level":
			if _, err := logrus.ParseLevel(val); err != nil {
				return fmt.Errorf("invalid log_level: %s", val)
			}
			cfg.LogLevel = val
		case "results_db":
			cfg.ResultsDB = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, p := range splitList(s) {
		i, err := strconv.Atoi(strings.TrimPrefix(p, "+"))
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
