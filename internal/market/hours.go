package market

import (
	"fmt"
	"time"
)

// Hours describes a trading session window in a fixed timezone, e.g. the
// 09:15-15:30 IST equities session.
type Hours struct {
	open  int // minutes since midnight
	close int
	loc   *time.Location
}

// ParseHours builds an Hours from "HH:MM" open/close strings and a timezone
// name understood by time.LoadLocation.
func ParseHours(open, close, tz string) (Hours, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Hours{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	o, err := parseClock(open)
	if err != nil {
		return Hours{}, fmt.Errorf("open time: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return Hours{}, fmt.Errorf("close time: %w", err)
	}
	if c <= o {
		return Hours{}, fmt.Errorf("close %q not after open %q", close, open)
	}
	return Hours{open: o, close: c, loc: loc}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether t falls inside the session, weekends excluded.
func (h Hours) Contains(t time.Time) bool {
	if h.loc == nil {
		return true // unset hours mean always-on (tests, crypto venues)
	}
	local := t.In(h.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	m := local.Hour()*60 + local.Minute()
	return m >= h.open && m < h.close
}
