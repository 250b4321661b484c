package cliapp

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/audit"
	"github.com/BoweyLou/obssync/internal/config"
	"github.com/BoweyLou/obssync/internal/linkstore"
	"github.com/BoweyLou/obssync/internal/matcher"
	"github.com/BoweyLou/obssync/internal/obsidian"
	"github.com/BoweyLou/obssync/internal/reminders"
	"github.com/BoweyLou/obssync/internal/router"
	"github.com/BoweyLou/obssync/internal/syncengine"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

type syncFlags struct {
	configPath     string
	vault          string
	apply          bool
	direction      string
	noDedup        bool
	dedupAutoApply bool
	verbose        bool
	logFile        string
	htmlOut        string
}

// NewSyncCmd builds the `sync` subcommand: --apply (default dry-run),
// --direction {both|obs-to-rem|rem-to-obs}, --vault NAME, --no-dedup,
// --dedup-auto-apply, --verbose.
func NewSyncCmd() *cobra.Command {
	flags := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile an Obsidian vault with its linked Reminders lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", defaultConfigPath(), "path to the obssync config file")
	cmd.Flags().StringVar(&flags.vault, "vault", "", "vault id to sync (required)")
	cmd.Flags().BoolVar(&flags.apply, "apply", false, "apply the plan instead of dry-run")
	cmd.Flags().StringVar(&flags.direction, "direction", "both", "both|obs-to-rem|rem-to-obs")
	cmd.Flags().BoolVar(&flags.noDedup, "no-dedup", false, "skip the deduplication phase")
	cmd.Flags().BoolVar(&flags.dedupAutoApply, "dedup-auto-apply", false, "auto-resolve duplicate clusters instead of prompting")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "debug-level logging")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "rotate logs to this file instead of stderr")
	cmd.Flags().StringVar(&flags.htmlOut, "html", "", "also write the report as HTML to this path")
	return cmd
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "obssync.yaml"
	}
	return filepath.Join(home, ".config", "obssync", "config.yaml")
}

func parseDirection(s string) (syncengine.Direction, error) {
	switch s {
	case "both", "":
		return syncengine.DirectionBoth, nil
	case "obs-to-rem":
		return syncengine.DirectionObsToRem, nil
	case "rem-to-obs":
		return syncengine.DirectionRemToObs, nil
	default:
		return 0, fmt.Errorf("unknown --direction %q", s)
	}
}

func runSync(cmd *cobra.Command, flags *syncFlags) error {
	logger := SetupLogging(flags.verbose, flags.logFile)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return syncerr.New(syncerr.ConfigurationError, "cliapp.runSync", err)
	}
	if flags.vault == "" {
		return syncerr.Newf(syncerr.ConfigurationError, "cliapp.runSync", "--vault is required")
	}
	return syncOnce(cmd, cfg, runParams{
		configPath:  flags.configPath,
		vault:       flags.vault,
		apply:       flags.apply,
		direction:   flags.direction,
		noDedup:     flags.noDedup,
		dedupAuto:   flags.dedupAutoApply,
		htmlOut:     flags.htmlOut,
		interactive: true,
	}, logger)
}

// runParams carries one sync invocation's knobs into syncOnce, shared
// by the one-shot sync command and the long-running watch loop.
// interactive gates the huh dedup prompt: the watch loop runs
// unattended, so its clusters are only ever reported or auto-applied.
type runParams struct {
	configPath  string
	vault       string
	apply       bool
	direction   string
	noDedup     bool
	dedupAuto   bool
	htmlOut     string
	interactive bool
}

// syncOnce assembles the engine for one vault from an already-loaded
// configuration, runs a single sync, renders the report, and records
// the run in the audit log.
func syncOnce(cmd *cobra.Command, cfg *config.Config, p runParams, logger *slog.Logger) error {
	vaultCfg, ok := cfg.VaultByName(p.vault)
	if !ok {
		return syncerr.Newf(syncerr.ConfigurationError, "cliapp.syncOnce", "vault %q not found in config", p.vault)
	}

	direction, err := parseDirection(p.direction)
	if err != nil {
		return syncerr.New(syncerr.ConfigurationError, "cliapp.syncOnce", err)
	}

	obsManager, err := obsidian.New(vaultCfg.VaultID, vaultCfg.Path)
	if err != nil {
		return err
	}

	gateway := &reminders.AppleScriptGateway{}

	r := &router.Router{
		VaultID:       vaultCfg.VaultID,
		TagRoutes:     vaultCfg.TagRoutes,
		ListRoutes:    vaultCfg.ListRoutes,
		DefaultListID: vaultCfg.DefaultListID,
		InboxFile:     vaultCfg.InboxFile,
	}

	linkPath := filepath.Join(filepath.Dir(p.configPath), vaultCfg.VaultID+".links.json")
	engine := &syncengine.Engine{
		VaultID: vaultCfg.VaultID,
		Obs:     obsManager,
		Rem:     gateway,
		Links:   linkstore.New(linkPath),
		Router:  r,
		MatcherOpts: matcher.Options{
			MinScore:      cfg.Global.MinScore,
			DaysTolerance: cfg.Global.DaysTolerance,
			TopK:          50,
			HungarianCap:  250000,
			PruneCap:      10000,
		},
		IncludeCompleted: cfg.Global.IncludeCompleted,
		Logger:           logger,
	}

	opts := syncengine.Options{
		Apply:     p.apply,
		Direction: direction,
		NoDedup:   p.noDedup || !cfg.Global.EnableDeduplication,
		DedupAuto: p.dedupAuto || cfg.Global.DedupAutoApply,
	}
	if p.interactive && !opts.NoDedup && !opts.DedupAuto {
		opts.DedupPrompt = PromptDisposition
	}

	started := time.Now()
	report, syncErr := engine.Sync(cmd.Context(), opts)
	ended := time.Now()

	if report != nil {
		markdown := BuildReportMarkdown(report)
		fmt.Fprintln(cmd.OutOrStdout(), Summary(report))
		fmt.Fprintln(cmd.OutOrStdout(), RenderANSI(markdown))
		if p.htmlOut != "" {
			if html, htmlErr := RenderHTML(markdown); htmlErr == nil {
				_ = os.WriteFile(p.htmlOut, []byte(html), 0o644)
			}
		}
	}

	if auditStore, auditErr := audit.Open(filepath.Join(filepath.Dir(p.configPath), "history.db")); auditErr == nil {
		defer auditStore.Close()
		if report != nil {
			_ = auditStore.RecordReport(report, p.direction, started, ended, syncErr)
		}
	}

	return syncErr
}
