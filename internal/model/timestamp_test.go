package model

import (
	"testing"
	"time"
)

func TestTimestampResolve(t *testing.T) {
	instant := time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		ts     Timestamp
		wantOK bool
	}{
		{"absent", AbsentTimestamp(), false},
		{"empty iso collapses to absent", ISOTimestamp(""), false},
		{"valid iso", ISOTimestamp("2025-01-08T11:00:00Z"), true},
		{"iso with fraction", ISOTimestamp("2025-01-08T11:00:00.250Z"), true},
		{"unparsable iso", ISOTimestamp("not-a-timestamp"), false},
		{"native", NativeTimestamp(instant), true},
		{"zero native collapses to absent", NativeTimestamp(time.Time{}), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, ok := c.ts.Resolve()
			if ok != c.wantOK {
				t.Fatalf("Resolve() ok = %t, want %t", ok, c.wantOK)
			}
		})
	}
}

func TestTimestampStrictlyAfterAcrossShapes(t *testing.T) {
	earlier := ISOTimestamp("2025-01-08T10:00:00Z")
	later := NativeTimestamp(time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC))

	if !later.StrictlyAfter(earlier) {
		t.Fatal("native 11:00 must be strictly after iso 10:00")
	}
	if earlier.StrictlyAfter(later) {
		t.Fatal("iso 10:00 must not be strictly after native 11:00")
	}
}

func TestTimestampStrictlyAfterPresentBeatsAbsent(t *testing.T) {
	present := NativeTimestamp(time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC))
	broken := ISOTimestamp("not-a-timestamp")

	if !present.StrictlyAfter(AbsentTimestamp()) {
		t.Fatal("a present timestamp wins over an absent one")
	}
	if !present.StrictlyAfter(broken) {
		t.Fatal("an unparsable timestamp is treated as absent, so the present side wins")
	}
	if broken.StrictlyAfter(present) {
		t.Fatal("an unparsable timestamp never wins on its own")
	}
	if AbsentTimestamp().StrictlyAfter(AbsentTimestamp()) {
		t.Fatal("two absent timestamps compare as neither-later")
	}
}
