// Package resolver performs per-field last-writer-wins conflict
// resolution over a matched (Obsidian, Reminders) pair, with a
// timestamp comparison that tolerates the two sides' different shapes
// (ISO string vs. native datetime).
package resolver

import (
	"sort"
	"strings"

	"github.com/BoweyLou/obssync/internal/model"
)

// Side identifies which side of a pair won a field.
type Side int

const (
	SideNone Side = iota
	SideObsidian
	SideReminders
)

func (s Side) String() string {
	switch s {
	case SideObsidian:
		return "obsidian"
	case SideReminders:
		return "reminders"
	default:
		return "none"
	}
}

// FieldWinner is one entry of the resolver's output map.
type FieldWinner struct {
	Winner Side
	Value  interface{}
}

// Resolution is the resolver's output: a set of field winners. An empty
// Resolution means the pair is already in sync.
type Resolution map[string]FieldWinner

// IsEmpty reports whether the pair needs no updates.
func (r Resolution) IsEmpty() bool {
	return len(r) == 0
}

// Fields lists resolution keys in a deterministic order, useful for
// building stable plan output.
func (r Resolution) Fields() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Pair is the input to Resolve: one matched Obsidian/Reminders task.
type Pair struct {
	Obs model.ObsidianTask
	Rem model.ReminderTask
}

// Resolve compares both sides of a matched pair field by field and
// returns the set of fields that must change, and on which side:
//
//   - the side whose modified_at is strictly later wins;
//   - on equal or missing timestamps, Obsidian wins for content fields
//     (description, due, priority, tags, notes);
//   - Reminders wins the status field on equal/missing timestamps only
//     if Reminders' modified_at parses to a value strictly later than
//     Obsidian's (i.e. never on equal/missing - status has no
//     Obsidian-wins default);
//   - tags resolve by union when both sides changed since the link was
//     last synced and they differ; otherwise by the timestamp rule.
func Resolve(pair Pair, tagsChangedBothSides bool) Resolution {
	out := Resolution{}

	obsLater := pair.Obs.ModifiedAt.StrictlyAfter(pair.Rem.ModifiedAt)
	remLater := pair.Rem.ModifiedAt.StrictlyAfter(pair.Obs.ModifiedAt)

	if field, ok := resolveContentString("description", pair.Obs.Description, pair.Rem.Title, obsLater, remLater); ok {
		out["description"] = field
	}
	if field, ok := resolveDue(pair.Obs.Due, pair.Rem.Due, obsLater, remLater); ok {
		out["due"] = field
	}
	if field, ok := resolvePriority(pair.Obs.Priority, pair.Rem.Priority, obsLater, remLater); ok {
		out["priority"] = field
	}
	if field, ok := resolveTags(pair.Obs.Tags, pair.Rem.Tags, obsLater, remLater, tagsChangedBothSides); ok {
		out["tags"] = field
	}
	if field, ok := resolveContentString("notes", pair.Obs.Notes, pair.Rem.Notes, obsLater, remLater); ok {
		out["notes"] = field
	}
	if field, ok := resolveStatus(pair.Obs.Status, pair.Rem.Status, obsLater, remLater); ok {
		out["status"] = field
	}

	return out
}

// resolveContentString implements the generic content-field rule:
// later timestamp wins; Obsidian wins ties.
func resolveContentString(field, obsValue, remValue string, obsLater, remLater bool) (FieldWinner, bool) {
	if obsValue == remValue {
		return FieldWinner{}, false
	}
	if remLater {
		return FieldWinner{Winner: SideReminders, Value: remValue}, true
	}
	// obsLater, or tie/missing: Obsidian wins.
	return FieldWinner{Winner: SideObsidian, Value: obsValue}, true
}

func resolveDue(obs, rem *model.Date, obsLater, remLater bool) (FieldWinner, bool) {
	if datesEqual(obs, rem) {
		return FieldWinner{}, false
	}
	if remLater {
		return FieldWinner{Winner: SideReminders, Value: rem}, true
	}
	return FieldWinner{Winner: SideObsidian, Value: obs}, true
}

func datesEqual(a, b *model.Date) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func resolvePriority(obs, rem model.Priority, obsLater, remLater bool) (FieldWinner, bool) {
	if obs == rem {
		return FieldWinner{}, false
	}
	if remLater {
		return FieldWinner{Winner: SideReminders, Value: rem}, true
	}
	return FieldWinner{Winner: SideObsidian, Value: obs}, true
}

// resolveStatus follows the general strictly-later rule in both
// directions, but with no Obsidian-wins-on-tie default: Reminders wins
// completion status if and only if its modified_at is strictly later,
// so a tie or missing timestamps on both sides leaves status unresolved
// (each store's own value stands, unchanged, not reassigned).
func resolveStatus(obs, rem model.Status, obsLater, remLater bool) (FieldWinner, bool) {
	if obs == rem {
		return FieldWinner{}, false
	}
	if remLater {
		return FieldWinner{Winner: SideReminders, Value: rem}, true
	}
	if obsLater {
		return FieldWinner{Winner: SideObsidian, Value: obs}, true
	}
	return FieldWinner{}, false
}

// resolveTags implements the union-on-both-changed rule, falling back
// to the timestamp rule otherwise.
func resolveTags(obs, rem []string, obsLater, remLater bool, changedBothSides bool) (FieldWinner, bool) {
	if tagsEqual(obs, rem) {
		return FieldWinner{}, false
	}
	if changedBothSides {
		union := unionTags(obs, rem)
		return FieldWinner{Winner: SideNone, Value: union}, true
	}
	if remLater {
		return FieldWinner{Winner: SideReminders, Value: rem}, true
	}
	return FieldWinner{Winner: SideObsidian, Value: obs}, true
}

func tagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := sortedLower(a), sortedLower(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortedLower(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.ToLower(t)
	}
	sort.Strings(out)
	return out
}

func unionTags(a, b []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range a {
		key := strings.ToLower(t)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range b {
		key := strings.ToLower(t)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
