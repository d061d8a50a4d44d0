package services

import "time"

// Clock is the source of "now" for every time-dependent rule.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Calendar anchors calendar arithmetic to the organizational timezone.
// Calendar dates are persisted as UTC midnight of the local date.
type Calendar struct {
	now Clock
	loc *time.Location
}

func NewCalendar(now Clock, loc *time.Location) *Calendar {
	if now == nil {
		now = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{now: now, loc: loc}
}

// Now returns the current instant in UTC.
func (c *Calendar) Now() time.Time {
	return c.now().UTC()
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today returns the current organizational date as a UTC-midnight value.
func (c *Calendar) Today() time.Time {
	return DateOf(c.now(), c.loc)
}

// StartOfDay is the UTC instant at which the current organizational day began.
func (c *Calendar) StartOfDay() time.Time {
	local := c.now().In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc).UTC()
}

// StartOfMonth is the UTC instant at which the current organizational month began.
func (c *Calendar) StartOfMonth() time.Time {
	return c.MonthStartInstant(0)
}

// MonthStartInstant returns the UTC instant at which the month offset months
// from the current organizational month began. offset 0 is this month, -1 the previous.
func (c *Calendar) MonthStartInstant(offset int) time.Time {
	local := c.now().In(c.loc)
	return time.Date(local.Year(), local.Month()+time.Month(offset), 1, 0, 0, 0, 0, c.loc).UTC()
}

// MonthDates returns the first and last calendar dates of the month offset
// months from the current organizational month, as UTC-midnight values.
func (c *Calendar) MonthDates(offset int) (first, last time.Time) {
	local := c.now().In(c.loc)
	first = time.Date(local.Year(), local.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// DateOf truncates an instant to its calendar date in loc, as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD into a UTC-midnight date.
func ParseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return d, nil
}

// FormatDate renders a stored calendar date.
func FormatDate(d time.Time) string {
	return d.UTC().Format(dateLayout)
}
