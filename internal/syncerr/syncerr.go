// Package syncerr defines the tagged-variant error taxonomy the sync
// engine surfaces. Each kind carries its own recovery story instead of
// being caught by a single generic error path.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories the engine distinguishes.
type Kind int

const (
	// AuthorizationFailure: the Reminders gateway denied access. Fatal,
	// no mutation is attempted.
	AuthorizationFailure Kind = iota
	// BusyLock: another run holds the link lock. Abort before collect.
	BusyLock
	// IdentifierDrift: a stored rem_id is absent from the current
	// snapshot. Handled by recovery, never fatal on its own.
	IdentifierDrift
	// TimestampTypeMismatch: the resolver's parser received an
	// unexpected shape for modified_at. The field is treated as absent
	// on that side and the event is logged, never silent.
	TimestampTypeMismatch
	// PartialApply: one or more per-operation failures occurred during
	// apply; the remaining operations still proceeded.
	PartialApply
	// PlanInconsistency: the proposed plan violates the 1:1 link
	// invariant. Fatal - no apply, no persist.
	PlanInconsistency
	// ConfigurationError: a create has no routable destination (no
	// matching tag route and no vault default list).
	ConfigurationError
	// VaultAccessError: reading or writing a vault file failed (missing
	// root, permission denied, i/o error mid-walk).
	VaultAccessError
	// NotFoundError: an operation referenced a task id that does not
	// exist on the addressed side.
	NotFoundError
)

func (k Kind) String() string {
	switch k {
	case AuthorizationFailure:
		return "authorization_failure"
	case BusyLock:
		return "busy_lock"
	case IdentifierDrift:
		return "identifier_drift"
	case TimestampTypeMismatch:
		return "timestamp_type_mismatch"
	case PartialApply:
		return "partial_apply"
	case PlanInconsistency:
		return "plan_inconsistency"
	case ConfigurationError:
		return "configuration_error"
	case VaultAccessError:
		return "vault_access_error"
	case NotFoundError:
		return "not_found_error"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error wrapping an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a kind-tagged error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a kind-tagged error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// ExitCode maps an error to the CLI exit code contract: 0 success,
// 1 partial-apply with recorded failures, 2 configuration or lock
// contention error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 2
	}
	switch kind {
	case PartialApply:
		return 1
	case BusyLock, ConfigurationError, AuthorizationFailure, PlanInconsistency:
		return 2
	default:
		return 2
	}
}
