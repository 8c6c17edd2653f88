package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"octane/relay/pkg/audit"
	"octane/relay/pkg/config"
)

var auditFlags struct {
	limit  int
	format string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `List recent audit records from the configured audit database.

Examples:
  # Show the 20 most recent requests
  relay audit

  # Show more records as JSON
  relay audit --limit 100 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		if !cfg.Audit.AuditEnabled() {
			return fmt.Errorf("audit trail is disabled in configuration")
		}

		auditCfg := audit.DefaultSQLiteConfig()
		auditCfg.Path = cfg.Audit.Path
		storage, err := audit.NewSQLiteStorage(auditCfg)
		if err != nil {
			return fmt.Errorf("failed to open audit storage: %w", err)
		}
		defer storage.Close()

		records, err := storage.ListRecent(cmd.Context(), auditFlags.limit)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}

		switch auditFlags.format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		case "table":
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSTATUS\tMODEL\tCHANNEL\tIN\tOUT\tCOST\tLATENCY")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\t%.6f\t%s\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.StatusCode, r.Model, r.ChannelName,
					r.InputTokens, r.OutputTokens, r.Cost, r.Latency,
				)
			}
			return w.Flush()
		default:
			return fmt.Errorf("unknown format %q (must be \"table\" or \"json\")", auditFlags.format)
		}
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().IntVar(&auditFlags.limit, "limit", 20, "maximum records to show")
	auditCmd.Flags().StringVar(&auditFlags.format, "format", "table", "output format: table, json")
}
