// internal/clock/clock.go
package clock

import "time"

// Clock abstracts the time operations used by the sampling loop.
// Production code uses Real(); tests use Fake() and advance time explicitly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTimer returns a Timer that fires once after d.
	// If d <= 0 the timer fires immediately.
	NewTimer(d time.Duration) *Timer
}

// Timer is a single-shot timer. Read the fire time from C.
type Timer struct {
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the Timer from firing.
// Returns false if the timer already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) *Timer {
	t := time.NewTimer(d)
	return &Timer{C: t.C, stopFunc: t.Stop}
}
