package market

import (
	"testing"
	"time"
)

func TestHoursContains(t *testing.T) {
	h, err := ParseHours("09:15", "15:30", "Asia/Kolkata")
	if err != nil {
		t.Fatalf("ParseHours returned error: %v", err)
	}
	ist, _ := time.LoadLocation("Asia/Kolkata")

	// Monday 2026-03-02 inside the session.
	if !h.Contains(time.Date(2026, 3, 2, 10, 0, 0, 0, ist)) {
		t.Fatal("10:00 IST Monday must be inside the session")
	}
	if h.Contains(time.Date(2026, 3, 2, 9, 0, 0, 0, ist)) {
		t.Fatal("09:00 IST is before the open")
	}
	if h.Contains(time.Date(2026, 3, 2, 15, 30, 0, 0, ist)) {
		t.Fatal("the close minute is exclusive")
	}
	// Saturday.
	if h.Contains(time.Date(2026, 3, 7, 10, 0, 0, 0, ist)) {
		t.Fatal("weekends are out of session")
	}
}

func TestHoursZeroValueAlwaysOn(t *testing.T) {
	var h Hours
	if !h.Contains(time.Date(2026, 3, 7, 3, 0, 0, 0, time.UTC)) {
		t.Fatal("unset hours must be always-on")
	}
}

func TestParseHoursRejectsInvertedSession(t *testing.T) {
	if _, err := ParseHours("15:30", "09:15", "Asia/Kolkata"); err == nil {
		t.Fatal("close before open must be rejected")
	}
	if _, err := ParseHours("9am", "15:30", "Asia/Kolkata"); err == nil {
		t.Fatal("malformed clock must be rejected")
	}
}
