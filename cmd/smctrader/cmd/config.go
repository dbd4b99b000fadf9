package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smctrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage smctrader configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  smctrader config init -o smctrader.yaml
  smctrader config validate -f smctrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Credentials are left empty; set OANDA_ACCESS_TOKEN and OANDA_ACCOUNT_ID
in the environment or a .env file.

Example:
  smctrader config init -o smctrader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  smctrader config validate -f smctrader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "smctrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  smctrader run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Instruments: %s\n", strings.Join(cfg.Instruments, ", "))
	fmt.Fprintf(out, "  OANDA: %s\n", cfg.OANDA.Environment)
	fmt.Fprintf(out, "  Account: %.2f %s (Risk: %.1f%%)\n", cfg.Account.Balance, cfg.Account.Currency, cfg.Account.RiskPercent*100)
	fmt.Fprintf(out, "  Reconnect: %s (error %s, lost %s)\n", cfg.Reconnect.Strategy, cfg.Reconnect.ErrorDelay, cfg.Reconnect.LostDelay)
	fmt.Fprintf(out, "  Server: %s\n", cfg.Server.Addr)
	if err := cfg.RequireStream(); err != nil {
		fmt.Fprintf(out, "  ! %v\n", err)
	}
	return nil
}
