// Package clock abstracts time so that timer-driven code can be tested
// deterministically. Production code uses Real; tests use Fake and move
// time forward with Advance.
package clock

import "time"

// Clock is the subset of the time package the application schedules with.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d elapses and returns a Timer that can
	// cancel or re-arm the call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop prevents the timer from firing. It returns false if the timer had
// already fired or been stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset re-arms the timer to fire after d and reports whether it was
// active.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stopFunc: timer.Stop, resetFunc: timer.Reset}
}
