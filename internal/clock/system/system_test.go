package system

import (
	"testing"
	"time"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestClockCPUTimeNonDecreasing(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.CPUTime()
	sum := 0
	for i := 0; i < 1_000_000; i++ {
		sum += i
	}
	_ = sum
	second := clk.CPUTime()
	if first < 0 || second < first {
		t.Fatalf("expected non-decreasing cpu time, got %v then %v", first, second)
	}
}
