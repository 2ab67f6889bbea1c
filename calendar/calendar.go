package calendar

import (
	"fmt"
	"time"

	"github.com/meenmo/fixedincome/utils"
)

// Calendar is a weekend-plus-holidays business day calendar.
type Calendar struct {
	holidays map[string]struct{}
}

// New builds a calendar from holiday dates.
func New(holidays ...time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format(utils.DateLayout)] = struct{}{}
	}
	return c
}

// Parse builds a calendar from YYYY-MM-DD strings.
func Parse(holidays []string) (*Calendar, error) {
	dates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		d, err := utils.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("Parse: %w", err)
		}
		dates = append(dates, d)
	}
	return New(dates...), nil
}

// IsBusinessDay checks weekends and the holiday set. A nil calendar only
// knows weekends.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if c == nil {
		return true
	}
	_, holiday := c.holidays[t.Format(utils.DateLayout)]
	return !holiday
}

// AddBusinessDays moves n business days from t, backwards when n is
// negative. t itself never counts.
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	step, left := 1, n
	if n < 0 {
		step, left = -1, -n
	}
	for left > 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			left--
		}
	}
	return t
}
