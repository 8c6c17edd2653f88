package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"octane/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate the configuration file without starting the server.

Defaults and environment overrides are applied before validation, so the
result reflects what "relay run" would actually use.

Examples:
  # Validate the default config file
  relay validate

  # Validate a specific file
  relay validate --config /etc/relay/relay.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}

		fmt.Println("✓ Configuration valid")
		fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
		fmt.Printf("  store:          %s\n", cfg.Store.Path)
		fmt.Printf("  cache backend:  %s\n", cfg.Cache.Backend)
		if cfg.Audit.AuditEnabled() {
			fmt.Printf("  audit:          %s (retention %dd)\n", cfg.Audit.Path, cfg.Audit.Retention.Days)
		} else {
			fmt.Println("  audit:          disabled")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
