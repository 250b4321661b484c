package syncengine

import (
	"context"
	"fmt"
)

// apply dispatches plan's operations to the external managers: updates
// precede creates precede deletes, each category in (store, id) order.
// Each operation is try/continue: a single failure is recorded and does
// not abort the remaining operations.
func (e *Engine) apply(ctx context.Context, plan *Plan, report *Report) error {
	for i := range plan.Updates {
		e.applyOne(ctx, &plan.Updates[i], report)
	}
	for i := range plan.Creates {
		e.applyOne(ctx, &plan.Creates[i], report)
	}
	for i := range plan.Deletes {
		e.applyOne(ctx, &plan.Deletes[i], report)
	}

	report.Updates = plan.Updates
	report.Creates = plan.Creates
	report.Deletes = plan.Deletes
	return nil
}

func (e *Engine) applyOne(ctx context.Context, op *Operation, report *Report) {
	if op.Err != nil {
		// Already failed during planning (e.g. routing refusal).
		report.Failures = append(report.Failures, OperationFailure{Kind: op.Kind, ID: opID(*op), Reason: op.Err.Error()})
		return
	}

	var err error
	switch op.Kind {
	case OpUpdateObs:
		err = e.Obs.UpdateTask(ctx, *op.ObsTask)
	case OpUpdateRem:
		err = e.Rem.UpdateTask(ctx, *op.RemTask)
	case OpCreateRem:
		var created = *op.RemTask
		created, err = e.Rem.CreateTask(ctx, created)
		if err == nil {
			op.CreatedID = created.ID
			op.RemTask = &created
		}
	case OpCreateObs:
		var created = *op.ObsTask
		created, err = e.Obs.CreateTask(ctx, created, op.Heading)
		if err == nil {
			op.CreatedID = created.ID
			op.ObsTask = &created
		}
	case OpDeleteObs:
		err = e.Obs.DeleteTask(ctx, op.ObsTask.VaultID, op.ObsTask.FilePath, op.ObsTask.ID)
	case OpDeleteRem:
		err = e.Rem.DeleteTask(ctx, op.RemTask.ListID, op.RemTask.ID)
	}

	if err != nil {
		op.Err = err
		report.Failures = append(report.Failures, OperationFailure{
			Kind:   op.Kind,
			ID:     opID(*op),
			Reason: err.Error(),
		})
		e.logger().Error("apply operation failed", "vault", e.VaultID, "op", op.Kind.String(), "err", err)
	}
}

func opID(op Operation) string {
	store, id := op.sortID()
	return fmt.Sprintf("%s:%s", store, id)
}
