package syncengine

import "github.com/BoweyLou/obssync/internal/dedup"

// OperationFailure records one per-operation apply failure: operation
// id, side, and cause.
type OperationFailure struct {
	Kind   OpKind
	ID     string
	Reason string
}

// Report is the engine's user-visible output for both dry-run and
// apply modes: counts per category, the per-operation lists, and a
// recovery/diagnostic section.
type Report struct {
	VaultID string
	DryRun  bool

	Updates []Operation
	Creates []Operation
	Deletes []Operation

	DedupClusters []dedup.Cluster
	Diagnostics   []string
	Failures      []OperationFailure
}

// Counts returns per-category totals for the summary line of the
// report (updates, creates-per-direction, deletes, dedup-clusters).
func (r *Report) Counts() map[string]int {
	counts := map[string]int{
		"updates":         len(r.Updates),
		"creates_obs_rem": 0,
		"creates_rem_obs": 0,
		"deletes":         len(r.Deletes),
		"dedup_clusters":  len(r.DedupClusters),
		"failures":        len(r.Failures),
	}
	for _, op := range r.Creates {
		switch op.Kind {
		case OpCreateRem:
			counts["creates_obs_rem"]++
		case OpCreateObs:
			counts["creates_rem_obs"]++
		}
	}
	return counts
}

func (r *Report) fillDryRun(plan *Plan) {
	r.Updates = plan.Updates
	r.Creates = plan.Creates
	r.Deletes = plan.Deletes
}

// hasUnsafeApply reports whether any create in this report failed to
// produce a usable id. mergeLinks already excludes such a create from
// the persisted link set on its own; this just tells the caller the
// run must be reported (and exit) as partial-apply rather than clean.
func (r *Report) hasUnsafeApply() bool {
	for _, op := range r.Creates {
		if op.Kind == OpCreateRem || op.Kind == OpCreateObs {
			if op.Err != nil || op.CreatedID == "" {
				return true
			}
		}
	}
	return len(r.Failures) > 0 && hasCreateFailure(r.Failures)
}

func hasCreateFailure(failures []OperationFailure) bool {
	for _, f := range failures {
		if f.Kind == OpCreateObs || f.Kind == OpCreateRem {
			return true
		}
	}
	return false
}
