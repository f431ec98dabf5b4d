package server

import (
	"sync"
	"time"
)

// Timer is a one-shot delayed call that can be cancelled any number of
// times, before or after it fires. A nil *Timer is a valid, already
// cancelled timer.
type Timer struct {
	mu       sync.Mutex
	t        *time.Timer
	finished bool
}

// AfterFunc calls fn on its own goroutine once d has elapsed.
func AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.t = time.AfterFunc(d, func() {
		tm.mu.Lock()
		if tm.finished {
			tm.mu.Unlock()
			return
		}
		tm.finished = true
		tm.mu.Unlock()
		fn()
	})
	return tm
}

// Cancel stops the timer. It reports whether this call prevented fn from
// running.
func (tm *Timer) Cancel() bool {
	if tm == nil {
		return false
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.finished {
		return false
	}
	tm.finished = true
	tm.t.Stop()
	return true
}

// Pending reports whether the timer has neither fired nor been cancelled.
func (tm *Timer) Pending() bool {
	if tm == nil {
		return false
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return !tm.finished
}
