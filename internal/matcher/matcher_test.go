package matcher

import (
	"testing"

	"github.com/BoweyLou/obssync/internal/model"
)

func mustDate(t *testing.T, value string) model.Date {
	t.Helper()
	d, err := model.ParseDate(value)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", value, err)
	}
	return d
}

func TestMatch_ColdStartSingleMatch(t *testing.T) {
	due := mustDate(t, "2025-01-15")
	a := NewObsidianFingerprint(model.ObsidianTask{
		ID: "o1", Description: "Buy milk", Due: &due,
	})
	b := NewReminderFingerprint(model.ReminderTask{
		ID: "r1", Title: "Buy milk", Due: &due,
	})

	pairs := Match([]Fingerprint{a}, []Fingerprint{b}, DefaultOptions())
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %+v", len(pairs), pairs)
	}
	if pairs[0].AID != "o1" || pairs[0].BID != "r1" {
		t.Fatalf("unexpected pair: %+v", pairs[0])
	}
	if pairs[0].Score < 0.99 {
		t.Fatalf("expected near-1.0 score, got %f", pairs[0].Score)
	}
}

func TestMatch_BelowMinScoreExcluded(t *testing.T) {
	a := NewObsidianFingerprint(model.ObsidianTask{ID: "o1", Description: "Buy milk"})
	b := NewReminderFingerprint(model.ReminderTask{ID: "r1", Title: "Completely unrelated task about rockets"})

	pairs := Match([]Fingerprint{a}, []Fingerprint{b}, DefaultOptions())
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs below min_score, got %+v", pairs)
	}
}

func TestMatch_EachElementAtMostOnce(t *testing.T) {
	a := []Fingerprint{
		NewObsidianFingerprint(model.ObsidianTask{ID: "o1", Description: "Write report"}),
		NewObsidianFingerprint(model.ObsidianTask{ID: "o2", Description: "Write report"}),
	}
	b := []Fingerprint{
		NewReminderFingerprint(model.ReminderTask{ID: "r1", Title: "Write report"}),
	}

	pairs := Match(a, b, DefaultOptions())
	if len(pairs) != 1 {
		t.Fatalf("expected exactly 1 pair (B has 1 element), got %d: %+v", len(pairs), pairs)
	}
}

func TestMatch_Determinism(t *testing.T) {
	a := []Fingerprint{
		NewObsidianFingerprint(model.ObsidianTask{ID: "o1", Description: "Call Alice"}),
		NewObsidianFingerprint(model.ObsidianTask{ID: "o2", Description: "Call Bob"}),
	}
	b := []Fingerprint{
		NewReminderFingerprint(model.ReminderTask{ID: "r1", Title: "Call Alice"}),
		NewReminderFingerprint(model.ReminderTask{ID: "r2", Title: "Call Bob"}),
	}

	first := Match(a, b, DefaultOptions())
	second := Match(a, b, DefaultOptions())
	if len(first) != len(second) {
		t.Fatalf("non-deterministic result lengths: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic pair at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDueProximity(t *testing.T) {
	d1 := mustDate(t, "2025-01-15")
	d2 := mustDate(t, "2025-01-16")
	d3 := mustDate(t, "2025-01-20")

	cases := []struct {
		name string
		a, b *model.Date
		tol  int
		want float64
	}{
		{"both absent", nil, nil, 1, 1.0},
		{"one absent", &d1, nil, 1, 0.0},
		{"equal", &d1, &d1, 1, 1.0},
		{"within tolerance", &d1, &d2, 1, 0.0},
		{"beyond tolerance", &d1, &d3, 1, 0.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := dueProximity(c.a, c.b, c.tol)
			if got != c.want {
				t.Fatalf("dueProximity() = %f, want %f", got, c.want)
			}
		})
	}
}

func TestTagJaccard(t *testing.T) {
	empty := map[string]struct{}{}
	work := map[string]struct{}{"work": {}}
	workHome := map[string]struct{}{"work": {}, "home": {}}

	if got := tagJaccard(empty, empty); got != 1.0 {
		t.Fatalf("both empty: got %f, want 1.0", got)
	}
	if got := tagJaccard(work, workHome); got != 0.5 {
		t.Fatalf("partial overlap: got %f, want 0.5", got)
	}
}
