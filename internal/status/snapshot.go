// internal/status/snapshot.go
package status

import (
	"math"
	"time"
)

// Snapshot is the current device health as seen by the sampling loop.
// It carries no memory of the past beyond the current run of failures.
type Snapshot struct {
	Health              uint16
	ConsecutiveFailures uint32
	LastError           string

	// Since is when Health last changed.
	Since time.Time
}

// Next folds one sample outcome into prev.
// changed reports a health transition; failure counts alone do not count.
func Next(prev Snapshot, err error, at time.Time) (next Snapshot, changed bool) {
	next = prev

	if err == nil {
		next.ConsecutiveFailures = 0
		next.LastError = ""
		if prev.Health != HealthOK {
			next.Health = HealthOK
			next.Since = at
			changed = true
		}
		return next, changed
	}

	// HARD INVARIANT: failure count MUST NOT wrap
	if next.ConsecutiveFailures < math.MaxUint32 {
		next.ConsecutiveFailures++
	}
	next.LastError = err.Error()
	if prev.Health != HealthError {
		next.Health = HealthError
		next.Since = at
		changed = true
	}
	return next, changed
}
