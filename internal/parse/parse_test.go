package parse

import (
	"testing"
	"time"
)

// TestDecimalCommaAndBlank verifies comma decimals parse and blanks fail
// explicitly instead of defaulting to zero.
func TestDecimalCommaAndBlank(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"102,5", 102.5, true},
		{"102.5", 102.5, true},
		{" 60 ", 60, true},
		{"0", 0, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"12kg", 0, false},
	}
	for _, c := range cases {
		got, ok := Decimal(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("Decimal(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestInt(t *testing.T) {
	if v, ok := Int("8,0"); !ok || v != 8 {
		t.Errorf("Int(8,0) = (%d, %v), want (8, true)", v, ok)
	}
	if _, ok := Int("x"); ok {
		t.Error("Int(x) unexpectedly ok")
	}
}

// TestDayTextualFormats covers the layout list: year-first dotted/dashed and
// day-first dotted/slashed forms all resolve to the same calendar day.
func TestDayTextualFormats(t *testing.T) {
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2025.03.14",
		"2025-03-14",
		"2025/03/14",
		"14.03.2025",
		"14/03/2025",
		"2025.03.14, 18:02",
	} {
		got, ok := Day(in)
		if !ok {
			t.Errorf("Day(%q) failed", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("Day(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestDaySerial verifies spreadsheet day-serial parsing against the
// 1899-12-30 epoch: serial 45000 is 2023-03-15.
func TestDaySerial(t *testing.T) {
	got, ok := Day("45000")
	if !ok {
		t.Fatal("Day(45000) failed")
	}
	want := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day(45000) = %v, want %v", got, want)
	}
}

func TestDayRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "  ", "yesterday", "7", "99.99.9999"} {
		if _, ok := Day(in); ok {
			t.Errorf("Day(%q) unexpectedly ok", in)
		}
	}
}
