// Package wallclock indirects the time functions used to meter cooperative
// work, so tests can control apparent time.
package wallclock

import "time"

type (
	// WallClock abstracts the subset of package time used for timeslice
	// accounting.
	WallClock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	wallClock struct{}
)

// Now indirects time.Now.
func (wallClock) Now() time.Time {
	return time.Now()
}

// Since indirects time.Since.
func (wallClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Instance is the WallClock backed by package time. Components take a
// WallClock in their configuration and fall back to Instance when none is set.
var Instance WallClock = wallClock{}
