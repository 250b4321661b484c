package cliapp

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/audit"
)

// NewHistoryCmd builds the `history` subcommand: a read-only listing of
// past run-history rows for a vault.
func NewHistoryCmd() *cobra.Command {
	var configPath string
	var vault string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past sync runs for a vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			if vault == "" {
				return fmt.Errorf("--vault is required")
			}
			store, err := audit.Open(filepath.Join(filepath.Dir(configPath), "history.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(vault, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %-10s %-6s %-14s %7s %7s %7s %7s %7s\n",
				"started_at", "direction", "dry", "status", "upd", "cr_o2r", "cr_r2o", "del", "dedup")
			for _, run := range runs {
				fmt.Fprintf(out, "%-20s %-10s %-6t %-14s %7d %7d %7d %7d %7d\n",
					run.StartedAt.Format("2006-01-02T15:04"), run.Direction, run.DryRun, run.ExitStatus,
					run.Updates, run.CreatesObsRem, run.CreatesRemObs, run.Deletes, run.DedupClusters)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath(), "path to the obssync config file")
	cmd.Flags().StringVar(&vault, "vault", "", "vault id to query")
	cmd.Flags().IntVar(&limit, "limit", 20, "max rows to display")
	return cmd
}
