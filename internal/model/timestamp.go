package model

import "time"

// TimestampKind distinguishes the shapes a modified_at value can arrive in.
type TimestampKind int

const (
	// TimestampAbsent means the field carries no timestamp at all.
	TimestampAbsent TimestampKind = iota
	// TimestampISO means the value arrived as an ISO 8601 string (Obsidian side).
	TimestampISO
	// TimestampNative means the value arrived as a host-native datetime (Reminders side).
	TimestampNative
)

// Timestamp is a sum over the three shapes a modification time can
// take: Absent | Iso(string) | Native(instant). Normalizing both
// sides to this type at the boundary keeps the resolver's comparison
// total and prevents a one-sided string-only parser from silently
// treating a native datetime as always-earlier.
type Timestamp struct {
	kind   TimestampKind
	iso    string
	native time.Time
}

// AbsentTimestamp returns a timestamp carrying no value.
func AbsentTimestamp() Timestamp {
	return Timestamp{kind: TimestampAbsent}
}

// ISOTimestamp wraps a raw ISO 8601 string as received from Obsidian.
func ISOTimestamp(value string) Timestamp {
	if value == "" {
		return AbsentTimestamp()
	}
	return Timestamp{kind: TimestampISO, iso: value}
}

// NativeTimestamp wraps a host-native instant as received from Reminders.
func NativeTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return AbsentTimestamp()
	}
	return Timestamp{kind: TimestampNative, native: t}
}

// Kind reports which shape this timestamp carries.
func (t Timestamp) Kind() TimestampKind {
	return t.kind
}

// Resolve normalizes the timestamp to an instant. ok is false when the
// timestamp is absent or, for the ISO case, fails to parse under either
// RFC3339Nano or RFC3339 - a TimestampTypeMismatch is reported by the
// caller, never silently treated as "earlier than everything".
func (t Timestamp) Resolve() (time.Time, bool) {
	switch t.kind {
	case TimestampNative:
		return t.native, true
	case TimestampISO:
		if parsed, err := time.Parse(time.RFC3339Nano, t.iso); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t.iso); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// StrictlyAfter reports whether t resolves to an instant strictly later
// than other. A side that is absent or fails to parse never wins on its
// own, but a present, resolvable timestamp does beat an absent one: the
// unparsable side is treated as absent, and the other side wins that
// field whenever its own timestamp is present.
func (t Timestamp) StrictlyAfter(other Timestamp) bool {
	a, aok := t.Resolve()
	if !aok {
		return false
	}
	b, bok := other.Resolve()
	if !bok {
		return true
	}
	return a.After(b)
}

// Equal reports whether both timestamps resolve to the same instant.
func (t Timestamp) Equal(other Timestamp) bool {
	a, aok := t.Resolve()
	b, bok := other.Resolve()
	if !aok || !bok {
		return aok == bok
	}
	return a.Equal(b)
}
