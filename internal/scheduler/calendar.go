package scheduler

import "time"

// DefaultWeekLength is one calendar week.
const DefaultWeekLength = 7 * 24 * time.Hour

// Calendar maps wall-clock time onto course weeks. Week 1 begins at Start.
type Calendar struct {
	Start      time.Time
	WeekLength time.Duration
	Now        func() time.Time // defaults to time.Now
}

// NewCalendar creates a calendar starting at start with the given week length.
func NewCalendar(start time.Time, weekLength time.Duration) *Calendar {
	if weekLength <= 0 {
		weekLength = DefaultWeekLength
	}
	return &Calendar{Start: start, WeekLength: weekLength, Now: time.Now}
}

// CurrentWeek returns the 1-based course week. Before the course starts it
// reports week 1.
func (c *Calendar) CurrentWeek() int {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	elapsed := now().Sub(c.Start)
	if elapsed < 0 {
		return 1
	}
	return int(elapsed/c.WeekLength) + 1
}

// WeekStart returns when the given week begins.
func (c *Calendar) WeekStart(week int) time.Time {
	return c.Start.Add(time.Duration(max(week-1, 0)) * c.WeekLength)
}
