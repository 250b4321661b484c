package syncengine

import (
	"sort"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/resolver"
)

// OpKind enumerates the six concrete operation shapes a plan can
// contain: updates, creates in each direction, deletes on each side.
type OpKind int

const (
	OpUpdateObs OpKind = iota
	OpUpdateRem
	OpCreateObs
	OpCreateRem
	OpDeleteObs
	OpDeleteRem
)

func (k OpKind) String() string {
	switch k {
	case OpUpdateObs:
		return "update_obs"
	case OpUpdateRem:
		return "update_rem"
	case OpCreateObs:
		return "create_obs"
	case OpCreateRem:
		return "create_rem"
	case OpDeleteObs:
		return "delete_obs"
	case OpDeleteRem:
		return "delete_rem"
	default:
		return "unknown"
	}
}

// Operation is one plan entry. ObsTask/RemTask carry the target state
// (post-update for updates, the template for creates, the
// about-to-be-removed snapshot for deletes). CreatedID/Err are filled
// in by apply.
type Operation struct {
	Kind    OpKind
	ObsTask *model.ObsidianTask
	RemTask *model.ReminderTask
	Changes resolver.Resolution
	Heading string
	Reason  string

	CreatedID string
	Err       error
}

// sortID returns the operation's natural identity for (store, id)
// ordering.
func (op Operation) sortID() (store, id string) {
	if op.ObsTask != nil && (op.Kind == OpUpdateObs || op.Kind == OpDeleteObs || op.Kind == OpCreateRem) {
		return "obsidian", op.ObsTask.ID
	}
	if op.RemTask != nil {
		return "reminders", op.RemTask.ID
	}
	return "obsidian", ""
}

func opSortKey(op Operation) string {
	store, id := op.sortID()
	return store + "\x00" + id
}

// Plan is the engine's deterministic, value-typed output: dry-run and
// apply share everything up to this value.
type Plan struct {
	Updates []Operation
	Creates []Operation
	Deletes []Operation
}

// Sort orders each category by (store, id) so dry-run and apply output
// are line-for-line comparable.
func (p *Plan) Sort() {
	sortOps(p.Updates)
	sortOps(p.Creates)
	sortOps(p.Deletes)
}

func sortOps(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return opSortKey(ops[i]) < opSortKey(ops[j])
	})
}
