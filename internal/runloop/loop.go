// Package runloop serializes all daemon work onto a single goroutine.
//
// Window-system events, timer callbacks, and control-socket requests all
// funnel through one Loop, so the packages built on top of it hold plain
// maps and ints with no locking. State owned by the loop must only be
// touched from functions running on it.
package runloop

import (
	"context"
	"time"
)

// Loop runs queued functions one at a time on a dedicated goroutine.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func New() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is cancelled. It must be called
// exactly once, and everything queued after it returns is dropped.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn for execution on the loop goroutine. Safe to call from any
// goroutine; after the loop stops the function is silently discarded.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Call runs fn on the loop goroutine and blocks until it completes. It must
// not be invoked from the loop goroutine itself. If the loop stops before
// fn runs, Call returns without executing it.
func (l *Loop) Call(fn func()) {
	ch := make(chan struct{})
	l.Post(func() {
		fn()
		close(ch)
	})
	select {
	case <-ch:
	case <-l.done:
	}
}

// After schedules fn to run on the loop goroutine once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.cancelled {
				return
			}
			t.fired = true
			fn()
		})
	})
	return t
}

// Task is a pending After callback. Its fields are owned by the loop
// goroutine; Cancel must be called from there.
type Task struct {
	timer     *time.Timer
	fired     bool
	cancelled bool
}

// Cancel prevents the callback from running and reports whether it did so.
func (t *Task) Cancel() bool {
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	t.timer.Stop()
	return true
}
