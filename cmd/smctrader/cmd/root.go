package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/smctrader/config"
	"github.com/rustyeddy/smctrader/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "smctrader",
	Short: "Smart Money Concepts signal engine for OANDA forex streams",
	Long: `smctrader watches live forex prices, builds 1H and 4H candles and
looks for Smart Money Concepts setups: a liquidity sweep, a market
structure shift and a mitigated order block on both timeframes.

Signals are paper traded only. Each suggested trade is followed until its
stop loss or take profit is hit.

It provides:
  - run      stream prices from OANDA and serve the status dashboard API
  - replay   feed a recorded tick CSV through the same pipeline
  - analyze  run a single analysis over candles stored in a JSON file
  - config   generate or validate configuration files`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults plus environment when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (json, console)")
}

// loadConfig reads the dotenv file, then the config file or the defaults,
// applies the environment and the log flags, and validates.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	var cfg *config.Config
	if cfgFile != "" {
		c, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Default()
		cfg.ApplyEnv(os.LookupEnv)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	lc := cfg.Log
	if lc.Output == nil {
		lc.Output = cmd.ErrOrStderr()
	}
	return logging.New(lc)
}
