package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}

	c.Advance(time.Hour)
	if got := Day(c.Now()); got != "2026-03-02" {
		t.Errorf("expected day 2026-03-02, got %s", got)
	}
}

func TestDayUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 3, 1, 21, 0, 0, 0, loc)
	if got := Day(local); got != "2026-03-02" {
		t.Errorf("expected UTC day 2026-03-02, got %s", got)
	}
}
