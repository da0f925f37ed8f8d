package ccr

import (
	"sync/atomic"
	"time"
)

// NoDeadline is the sentinel meaning "never wake".
const NoDeadline int64 = -1

// DeadlineTimer exposes a single absolute monotonic-nanosecond deadline
// that any thread may move earlier (never later-blocked) and that a single
// waiter thread blocks on. Matches spec.md section 5's cancellation model:
// the deadline is published via a seqlock-like atomic and a semaphore post
// wakes the waiter; concurrent SetDeadline calls coalesce into at most one
// wakeup via the pending flag.
type DeadlineTimer struct {
	deadline int64 // unix nanos, or NoDeadline
	pending  int32
	wake     chan struct{}
}

// NewDeadlineTimer allocates a DeadlineTimer with no deadline set.
func NewDeadlineTimer() *DeadlineTimer {
	return &DeadlineTimer{
		deadline: NoDeadline,
		wake:     make(chan struct{}, 1),
	}
}

// SetDeadline moves the deadline to t. If t is earlier than the currently
// published deadline (or if there was none), the waiter is woken so it can
// recompute its sleep.
func (d *DeadlineTimer) SetDeadline(t time.Time) {
	var v int64
	if t.IsZero() {
		v = NoDeadline
	} else {
		v = t.UnixNano()
	}

	for {
		cur := atomic.LoadInt64(&d.deadline)
		if cur != NoDeadline && v >= cur {
			// not earlier: no need to wake anyone, but still publish so a
			// fresh Wait() sees the latest value.
			atomic.StoreInt64(&d.deadline, v)
			return
		}
		if atomic.CompareAndSwapInt64(&d.deadline, cur, v) {
			break
		}
	}

	if atomic.CompareAndSwapInt32(&d.pending, 0, 1) {
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
}

// Clear cancels the deadline (equivalent to SetDeadline(time.Time{})).
func (d *DeadlineTimer) Clear() {
	atomic.StoreInt64(&d.deadline, NoDeadline)
}

// Wait blocks until the deadline elapses or is moved, returning true if it
// elapsed (the waiter should act) or false if it was moved/cleared (the
// waiter should recompute and call Wait again).
func (d *DeadlineTimer) Wait() bool {
	// Discard a wakeup posted before this call; the deadline is read
	// fresh below.
	select {
	case <-d.wake:
	default:
	}
	for {
		atomic.StoreInt32(&d.pending, 0)

		dl := atomic.LoadInt64(&d.deadline)
		if dl == NoDeadline {
			<-d.wake
			continue
		}

		remaining := time.Until(time.Unix(0, dl))
		if remaining <= 0 {
			return true
		}

		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
			return true
		case <-d.wake:
			timer.Stop()
			return false
		}
	}
}
