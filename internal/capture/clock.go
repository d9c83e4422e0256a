package capture

import "time"

// Timer is a cancellable single-shot delay handle.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was still
	// pending; a false return means the callback already fired or the
	// timer was stopped before.
	Stop() bool
}

// Clock abstracts time for the pipeline so debounce behavior can be
// tested deterministically. The real implementation schedules callbacks
// with time.AfterFunc.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the runtime timer wheel.
func SystemClock() Clock { return systemClock{} }
