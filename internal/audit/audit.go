// Package audit persists one row per completed sync run to a local
// SQLite database: a purely additive, queryable operational log. The
// link file remains the sole canonical sync state; this is history
// only.
package audit

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/BoweyLou/obssync/internal/syncengine"
)

// Run is one row of the run-history table: vault, direction, start/end
// time, counts, and exit status for a completed sync invocation.
type Run struct {
	ID        uint `gorm:"primaryKey"`
	VaultID   string
	Direction string
	DryRun    bool
	StartedAt time.Time
	EndedAt   time.Time

	Updates       int
	CreatesObsRem int
	CreatesRemObs int
	Deletes       int
	DedupClusters int
	Failures      int

	ExitStatus string // "ok", "partial_apply", "error"
	ErrorText  string
}

// Store wraps a gorm.DB handle scoped to the run-history table.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if absent) the SQLite database at path and
// migrates the Run schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordReport inserts one Run row derived from a completed
// syncengine.Report plus the run's outer bookkeeping (direction,
// timing, terminal error if any).
func (s *Store) RecordReport(report *syncengine.Report, direction string, started, ended time.Time, runErr error) error {
	counts := report.Counts()
	run := Run{
		VaultID:       report.VaultID,
		Direction:     direction,
		DryRun:        report.DryRun,
		StartedAt:     started,
		EndedAt:       ended,
		Updates:       counts["updates"],
		CreatesObsRem: counts["creates_obs_rem"],
		CreatesRemObs: counts["creates_rem_obs"],
		Deletes:       counts["deletes"],
		DedupClusters: counts["dedup_clusters"],
		Failures:      counts["failures"],
		ExitStatus:    exitStatus(runErr, counts["failures"]),
	}
	if runErr != nil {
		run.ErrorText = runErr.Error()
	}
	return s.db.Create(&run).Error
}

func exitStatus(runErr error, failures int) string {
	switch {
	case runErr == nil && failures == 0:
		return "ok"
	case failures > 0:
		return "partial_apply"
	default:
		return "error"
	}
}

// Recent returns the most recent n runs for vaultID, newest first. n<=0
// means no limit.
func (s *Store) Recent(vaultID string, n int) ([]Run, error) {
	var runs []Run
	q := s.db.Where("vault_id = ?", vaultID).Order("started_at DESC")
	if n > 0 {
		q = q.Limit(n)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("audit: query runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
