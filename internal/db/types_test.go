package db

import (
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@corp.io  ", "bob@corp.io"},
		{"", ""},
		{"already@lower.dev", "already@lower.dev"},
	}
	for _, c := range cases {
		if got := NormalizeEmail(c.in); got != c.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSameMonth(t *testing.T) {
	cases := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"same month", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC), true},
		{"next month", time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{"same month different year", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := SameMonth(c.a, c.b); got != c.want {
			t.Errorf("%s: SameMonth = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFirstOfMonth(t *testing.T) {
	got := FirstOfMonth(time.Date(2025, 7, 19, 14, 30, 5, 0, time.UTC))
	want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("FirstOfMonth = %v, want %v", got, want)
	}
}
