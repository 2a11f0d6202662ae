package app

import "time"

// Clock lets tests drive time-based behaviour deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
