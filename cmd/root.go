package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/pondstat-cli/internal/config"
	"github.com/KaramelBytes/pondstat-cli/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagWorkers int

	// Loaded configuration
	cfg *cfgpkg.Global
	// Diagnostics logger; user-facing status lines go to stdout directly.
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pondstat",
	Short: "pondstat CLI: lagged correlations between pond chemistry and weather",
	Long: `pondstat reads the measurements of a retention pond monitoring study together
with weather station data, converts raw lab instrument exports, and computes
lagged and same-day correlation matrices with significance flags.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.pondstat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parallel lag workers (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	// Apply CLI overrides if provided
	if rootCmd.PersistentFlags().Changed("workers") && flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using info level\n", err)
		l, _ = logging.New("info", os.Stderr)
	}
	logger = l
}
