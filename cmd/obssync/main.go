// Command obssync reconciles an Obsidian vault with its linked Apple
// Reminders lists: dry-run by default, --apply to mutate, with exit
// codes distinguishing clean, partial-apply, and configuration/lock
// failures.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/BoweyLou/obssync/internal/cliapp"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

func main() {
	root := cliapp.NewRootCmd()
	if err := fang.Execute(context.Background(), root); err != nil {
		slog.Error("obssync: command failed", "error", err)
		os.Exit(syncerr.ExitCode(err))
	}
}
