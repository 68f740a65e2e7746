package market

import (
	"fmt"
	"time"

	"TradeDesk/pkg/util"
)

// Calendar implements the regular-session trading window: weekdays between
// open and close in the configured exchange timezone. Holidays are not
// modeled; the operator can disable the gate via executionSettings.
type Calendar struct {
	loc      *time.Location
	openMin  int
	closeMin int
}

// New builds a calendar. Zero-value config falls back to NYSE regular hours.
func New(timezone, open, close string) (*Calendar, error) {
	if timezone == "" {
		timezone = "America/New_York"
	}
	if open == "" {
		open = "09:30"
	}
	if close == "" {
		close = "16:00"
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("market timezone: %w", err)
	}
	openMin, err := util.ParseClock(open)
	if err != nil {
		return nil, fmt.Errorf("market open: %w", err)
	}
	closeMin, err := util.ParseClock(close)
	if err != nil {
		return nil, fmt.Errorf("market close: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("market close %q not after open %q", close, open)
	}
	return &Calendar{loc: loc, openMin: openMin, closeMin: closeMin}, nil
}

// Location returns the exchange timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// IsOpen reports whether t falls inside the regular session.
func (c *Calendar) IsOpen(t time.Time) bool {
	t = t.In(c.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= c.openMin && m < c.closeMin
}
