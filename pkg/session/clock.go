package session

import "time"

// Clock supplies current time and a blocking sleep. The relay loop's timing
// logic only touches time through a Clock, so tests can drive it without
// real wall-clock delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock returns the real wall clock.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
