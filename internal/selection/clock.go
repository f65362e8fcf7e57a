package selection

import "time"

// Clock supplies the current instant and calendar date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// SystemClock reads the wall clock. Today is computed in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a clock whose calendar date is taken in loc.
func NewSystemClock(loc *time.Location) SystemClock {
	return SystemClock{Location: loc}
}

func (c SystemClock) Now() time.Time { return time.Now() }

func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// DateOf truncates t to midnight of its calendar day in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
