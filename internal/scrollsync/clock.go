package scrollsync

import "time"

// Timer is a pending callback created by a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks. Callbacks run on their own goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
