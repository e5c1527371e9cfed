// Package eventloop provides the owner goroutine of a client: a single
// goroutine draining a job queue. All client state is mutated only from
// this goroutine, so the client needs no locks.
package eventloop

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Do after the loop was closed.
var ErrStopped = errors.New("eventloop: loop stopped")

const queueSize = 128

type Loop struct {
	jobs    chan func()
	quit    chan struct{}
	stopped chan struct{}
	gid     uint64
	closed  int32
}

// New starts the loop goroutine.
func New() *Loop {
	l := &Loop{
		jobs:    make(chan func(), queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	started := make(chan struct{})
	go l.run(started)
	<-started
	return l
}

func (l *Loop) run(started chan struct{}) {
	atomic.StoreUint64(&l.gid, curGoroutineID())
	close(started)
	defer close(l.stopped)
	for {
		select {
		case f := <-l.jobs:
			f()
		case <-l.quit:
			return
		}
	}
}

// IsCurrent reports whether the caller is running on the loop goroutine.
func (l *Loop) IsCurrent() bool {
	return curGoroutineID() == atomic.LoadUint64(&l.gid)
}

// Do executes f on the loop goroutine and blocks until it returned.
// Called from the loop goroutine itself it runs f inline. A panic inside
// f is rethrown on the calling goroutine, not on the loop. Calling Do
// from a job that is itself being waited on through another loop's Do can
// deadlock; that restriction is on the caller.
func (l *Loop) Do(f func()) error {
	if l.IsCurrent() {
		f()
		return nil
	}
	done := make(chan struct{})
	var panicked interface{}
	job := func() {
		defer close(done)
		defer func() {
			panicked = recover()
		}()
		f()
	}
	select {
	case l.jobs <- job:
	case <-l.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		if panicked != nil {
			panic(panicked)
		}
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

// Post hands f to the loop goroutine without waiting for it. Posts after
// Close are dropped.
func (l *Loop) Post(f func()) {
	select {
	case l.jobs <- f:
	case <-l.stopped:
	}
}

// After runs f on the loop goroutine once d elapsed. There is no cancel:
// callbacks that outlive their subject must check liveness themselves.
func (l *Loop) After(d time.Duration, f func()) {
	time.AfterFunc(d, func() {
		l.Post(f)
	})
}

// Close stops the loop. Jobs still queued are discarded. Close must not be
// called from the loop goroutine.
func (l *Loop) Close() {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		<-l.stopped
		return
	}
	close(l.quit)
	<-l.stopped
}
