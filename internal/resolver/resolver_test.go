package resolver

import (
	"testing"
	"time"

	"github.com/BoweyLou/obssync/internal/model"
)

func TestResolve_CompletionInRemindersWins(t *testing.T) {
	obs := model.ObsidianTask{
		ID:         "o3",
		Status:     model.StatusTodo,
		ModifiedAt: model.ISOTimestamp("2025-01-08T10:00:00Z"),
	}
	rem := model.ReminderTask{
		ID:         "r3",
		Status:     model.StatusDone,
		ModifiedAt: model.NativeTimestamp(time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)),
	}

	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	winner, ok := res["status"]
	if !ok {
		t.Fatalf("expected a status resolution, got none: %+v", res)
	}
	if winner.Winner != SideReminders || winner.Value != model.StatusDone {
		t.Fatalf("unexpected status winner: %+v", winner)
	}
}

func TestResolve_TimestampPolymorphism(t *testing.T) {
	// Reminders' native datetime is strictly later than Obsidian's ISO
	// string - the resolver must compare across the two shapes, not
	// treat the native value as unparsable.
	obs := model.ObsidianTask{
		Status:     model.StatusTodo,
		ModifiedAt: model.ISOTimestamp("2025-01-01T00:00:00Z"),
	}
	rem := model.ReminderTask{
		Status:     model.StatusDone,
		ModifiedAt: model.NativeTimestamp(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	if res["status"].Winner != SideReminders {
		t.Fatalf("expected reminders to win status, got %+v", res["status"])
	}
}

func TestResolve_TieGoesToObsidianForContent(t *testing.T) {
	same := model.ISOTimestamp("2025-01-01T00:00:00Z")
	obs := model.ObsidianTask{Description: "obsidian text", ModifiedAt: same}
	rem := model.ReminderTask{Title: "reminders text", ModifiedAt: same}

	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	field, ok := res["description"]
	if !ok {
		t.Fatalf("expected a description resolution")
	}
	if field.Winner != SideObsidian || field.Value != "obsidian text" {
		t.Fatalf("expected obsidian to win ties on content fields, got %+v", field)
	}
}

func TestResolve_CompletionInObsidianWinsWhenLater(t *testing.T) {
	obs := model.ObsidianTask{
		Status:     model.StatusDone,
		ModifiedAt: model.ISOTimestamp("2025-01-08T12:00:00Z"),
	}
	rem := model.ReminderTask{
		Status:     model.StatusTodo,
		ModifiedAt: model.NativeTimestamp(time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)),
	}

	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	winner, ok := res["status"]
	if !ok {
		t.Fatalf("expected a status resolution, got none: %+v", res)
	}
	if winner.Winner != SideObsidian || winner.Value != model.StatusDone {
		t.Fatalf("expected obsidian's later completion to win, got %+v", winner)
	}
}

func TestResolve_StatusTieDoesNotFlip(t *testing.T) {
	same := model.ISOTimestamp("2025-01-01T00:00:00Z")
	obs := model.ObsidianTask{Status: model.StatusTodo, ModifiedAt: same}
	rem := model.ReminderTask{Status: model.StatusDone, ModifiedAt: same}

	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	if _, ok := res["status"]; ok {
		t.Fatalf("status must not resolve on a tie: %+v", res)
	}
}

func TestResolve_TagsUnionWhenBothChanged(t *testing.T) {
	obs := model.ObsidianTask{Tags: []string{"work"}}
	rem := model.ReminderTask{Tags: []string{"home"}}

	res := Resolve(Pair{Obs: obs, Rem: rem}, true)
	field, ok := res["tags"]
	if !ok {
		t.Fatalf("expected a tags resolution")
	}
	union, ok := field.Value.([]string)
	if !ok || len(union) != 2 {
		t.Fatalf("expected union of 2 tags, got %+v", field.Value)
	}
}

func TestResolve_EmptyWhenInSync(t *testing.T) {
	ts := model.ISOTimestamp("2025-01-01T00:00:00Z")
	obs := model.ObsidianTask{Description: "same", Status: model.StatusTodo, ModifiedAt: ts}
	rem := model.ReminderTask{Title: "same", Status: model.StatusTodo, ModifiedAt: ts}

	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	if !res.IsEmpty() {
		t.Fatalf("expected empty resolution for in-sync pair, got %+v", res)
	}
}

func TestResolve_UnparsableTimestampTreatedAsAbsent(t *testing.T) {
	obs := model.ObsidianTask{
		Status:     model.StatusTodo,
		ModifiedAt: model.ISOTimestamp("not-a-timestamp"),
	}
	rem := model.ReminderTask{
		Status:     model.StatusDone,
		ModifiedAt: model.NativeTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	res := Resolve(Pair{Obs: obs, Rem: rem}, false)
	// Reminders has a valid, resolvable timestamp; Obsidian's does not,
	// so it is treated as absent and Reminders' later status wins.
	if res["status"].Winner != SideReminders {
		t.Fatalf("expected reminders to win against an unparsable obsidian timestamp, got %+v", res["status"])
	}
}
