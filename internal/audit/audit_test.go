package audit

import (
	"testing"
	"time"

	"github.com/BoweyLou/obssync/internal/syncengine"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(t.TempDir() + "/audit.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	report := &syncengine.Report{VaultID: "V", DryRun: false}
	started := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ended := started.Add(2 * time.Second)
	if err := store.RecordReport(report, "both", started, ended, nil); err != nil {
		t.Fatalf("RecordReport: %v", err)
	}

	runs, err := store.Recent("V", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].ExitStatus != "ok" {
		t.Fatalf("expected ok status, got %q", runs[0].ExitStatus)
	}
}
