package idempotency

import (
	"testing"
	"time"
)

func TestGenerateKeyDeterministic(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 12, 0, time.UTC)

	a := GenerateKey("Dr. Chen", 1, 5, ts)
	b := GenerateKey("Dr. Chen", 1, 5, ts)
	if a != b {
		t.Errorf("same inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected a 64-char hex key, got %d chars", len(a))
	}
}

func TestGenerateKeyMinuteBucket(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 30, 5, 0, time.UTC)

	// A retry seconds later lands in the same bucket.
	retry := GenerateKey("Dr. Chen", 1, 5, base.Add(40*time.Second))
	if retry != GenerateKey("Dr. Chen", 1, 5, base) {
		t.Error("retry within the minute produced a different key")
	}

	// A submission in the next minute is a new request.
	later := GenerateKey("Dr. Chen", 1, 5, base.Add(2*time.Minute))
	if later == GenerateKey("Dr. Chen", 1, 5, base) {
		t.Error("submissions minutes apart share a key")
	}
}

func TestGenerateKeyDistinguishesInputs(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	base := GenerateKey("Dr. Chen", 1, 5, ts)

	if GenerateKey("Dr. Chen", 2, 5, ts) == base {
		t.Error("different patients share a key")
	}
	if GenerateKey("Dr. Chen", 1, 6, ts) == base {
		t.Error("different medications share a key")
	}
	if GenerateKey("Dr. Patel", 1, 5, ts) == base {
		t.Error("different prescribers share a key")
	}
}
