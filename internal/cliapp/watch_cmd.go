package cliapp

import (
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/config"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

type watchFlags struct {
	configPath     string
	vault          string
	apply          bool
	direction      string
	noDedup        bool
	dedupAutoApply bool
	verbose        bool
	logFile        string
	interval       time.Duration
}

// NewWatchCmd builds the `watch` subcommand: the long-running mode a
// launch agent invokes. It re-syncs the vault on a fixed interval and
// picks up configuration edits (tag routes, thresholds) between runs
// without a restart, via config.Watch. The loop is unattended, so the
// interactive dedup prompt is never wired; duplicate clusters are
// reported, or auto-resolved with --dedup-auto-apply.
func NewWatchCmd() *cobra.Command {
	flags := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously reconcile a vault, reloading config edits between runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", defaultConfigPath(), "path to the obssync config file")
	cmd.Flags().StringVar(&flags.vault, "vault", "", "vault id to sync (required)")
	cmd.Flags().BoolVar(&flags.apply, "apply", false, "apply each plan instead of dry-run")
	cmd.Flags().StringVar(&flags.direction, "direction", "both", "both|obs-to-rem|rem-to-obs")
	cmd.Flags().BoolVar(&flags.noDedup, "no-dedup", false, "skip the deduplication phase")
	cmd.Flags().BoolVar(&flags.dedupAutoApply, "dedup-auto-apply", false, "auto-resolve duplicate clusters")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "debug-level logging")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "rotate logs to this file instead of stderr")
	cmd.Flags().DurationVar(&flags.interval, "interval", 5*time.Minute, "time between sync runs")
	return cmd
}

func runWatch(cmd *cobra.Command, flags *watchFlags) error {
	logger := SetupLogging(flags.verbose, flags.logFile)

	if flags.vault == "" {
		return syncerr.Newf(syncerr.ConfigurationError, "cliapp.runWatch", "--vault is required")
	}
	if flags.interval <= 0 {
		return syncerr.Newf(syncerr.ConfigurationError, "cliapp.runWatch", "--interval must be positive, got %s", flags.interval)
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return syncerr.New(syncerr.ConfigurationError, "cliapp.runWatch", err)
	}

	var mu sync.Mutex
	current := cfg
	if err := config.Watch(flags.configPath, func(next *config.Config) {
		mu.Lock()
		current = next
		mu.Unlock()
		logger.Info("configuration reloaded", "path", flags.configPath)
	}); err != nil {
		return syncerr.New(syncerr.ConfigurationError, "cliapp.runWatch", err)
	}

	params := runParams{
		configPath: flags.configPath,
		vault:      flags.vault,
		apply:      flags.apply,
		direction:  flags.direction,
		noDedup:    flags.noDedup,
		dedupAuto:  flags.dedupAutoApply,
	}

	ticker := time.NewTicker(flags.interval)
	defer ticker.Stop()
	for {
		mu.Lock()
		snapshot := current
		mu.Unlock()

		// A failed run (busy lock, gateway outage, partial apply) is
		// logged and the loop keeps going; only cancellation ends it.
		if err := syncOnce(cmd, snapshot, params, logger); err != nil {
			logger.Error("sync run failed", "vault", flags.vault, "err", err)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}
