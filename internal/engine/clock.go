package engine

import (
	"time"

	"github.com/tartampluch/remindme/internal/model"
)

// Clock abstracts time.Now() to allow deterministic testing.
// The worker, the dispatcher and the HTTP handlers derive "today" from it.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today returns the local calendar date of the clock.
func Today(c Clock) model.Date {
	return model.DateOf(c.Now())
}
