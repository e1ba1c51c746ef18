package fulfillment

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextRefillDate(t *testing.T) {
	got := NextRefillDate(date(2023, 11, 1), 10)
	want := date(2023, 11, 11)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextRefillDateNormalizesTimeOfDay(t *testing.T) {
	filled := time.Date(2023, 11, 1, 18, 45, 12, 0, time.UTC)
	got := NextRefillDate(filled, 30)
	want := date(2023, 12, 1)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextRefillDateCrossesMonthBoundary(t *testing.T) {
	got := NextRefillDate(date(2024, 1, 25), 14)
	want := date(2024, 2, 8)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestClassify(t *testing.T) {
	now := date(2024, 3, 15)

	cases := []struct {
		name       string
		nextRefill time.Time
		want       DueStatus
	}{
		{"past due", date(2024, 3, 1), DueToday},
		{"due on the reference date", date(2024, 3, 15), DueToday},
		{"due tomorrow", date(2024, 3, 16), DueSoon},
		{"due at the window edge", date(2024, 3, 22), DueSoon},
		{"due past the window", date(2024, 3, 23), NotDue},
		{"due far out", date(2024, 6, 1), NotDue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.nextRefill, now); got != tc.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tc.nextRefill, now, got, tc.want)
			}
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	refill := time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC)

	if got := Classify(refill, now); got != DueToday {
		t.Errorf("expected DueToday, got %q", got)
	}
}
