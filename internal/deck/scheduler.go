package deck

import "time"

// Timer is a cancellable deferred task.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d. Implementations may run fn on another goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// realScheduler backs deferred tasks with the runtime timer wheel.
type realScheduler struct{}

// AfterFunc schedules fn with time.AfterFunc.
func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemScheduler returns the default wall-clock scheduler.
func SystemScheduler() Scheduler {
	return realScheduler{}
}

// immediateScheduler runs tasks inline on the caller's goroutine.
type immediateScheduler struct{}

// immediateTimer is already spent when it is returned.
type immediateTimer struct{}

func (immediateTimer) Stop() bool { return false }

// AfterFunc runs fn before returning and ignores d.
func (immediateScheduler) AfterFunc(_ time.Duration, fn func()) Timer {
	fn()
	return immediateTimer{}
}

// ImmediateScheduler settles commits synchronously. Hosts without an
// exit animation use it so a commit and its advance happen in one call.
func ImmediateScheduler() Scheduler {
	return immediateScheduler{}
}
