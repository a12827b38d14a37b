// Package system provides the real clock used to time a crawl.
package system

import "time"

// Clock reports wall time and the CPU time consumed by this process.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// CPUTime returns user plus system CPU time spent by the process so far.
// Platforms without getrusage report zero.
func (Clock) CPUTime() time.Duration {
	return processCPUTime()
}
