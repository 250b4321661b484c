package cliapp

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the obssync root command from its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "obssync",
		Short:         "Bidirectional sync between an Obsidian vault and Apple Reminders",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(NewSyncCmd())
	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewHistoryCmd())
	return root
}
