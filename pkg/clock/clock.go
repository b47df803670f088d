package clock

import "time"

// Clock supplies the current time. Every "today" decision in the ledger goes
// through it so tests can pin the date.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in Location (local time when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	now := time.Now()
	if s.Location != nil {
		return now.In(s.Location)
	}
	return now
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
