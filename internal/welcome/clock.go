package welcome

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already ran
	// or the timer was already stopped.
	Stop() bool
}

// Clock schedules one-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by time.AfterFunc.
func SystemClock() Clock {
	return systemClock{}
}
