package utils

import (
	"math"
	"testing"
	"time"
)

func TestDayCounts(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := WholeDays(start, end); got != 366 {
		t.Fatalf("WholeDays mismatch: got %d", got)
	}
	if got := YearFraction(start, end); math.Abs(got-366.0/365.0) > 1e-15 {
		t.Fatalf("YearFraction mismatch: got %.15f", got)
	}
	if got := AddDays(start, 366); !got.Equal(end) {
		t.Fatalf("AddDays mismatch: got %s", got)
	}
	if got := Days(end, start); got != -366 {
		t.Fatalf("Days mismatch: got %v", got)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if !got.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate mismatch: got %s", got)
	}
	if _, err := ParseDate("2025-02-30"); err == nil {
		t.Fatalf("expected error for invalid day")
	}
}
