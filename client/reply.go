package client

import (
	"context"

	"google.golang.org/grpc/codes"

	"github.com/f0mster/rpcclient/status"
)

// Reply is the handle for one in-flight asynchronous call. It completes
// exactly once, with data or with a non-OK status; whichever of Finish and
// Fail the channel reaches first wins and later events are dropped.
type Reply struct {
	// loop confined
	completed bool
	onError   func(status.Status)
	onFinish  func()

	// written once before done is closed
	data []byte
	st   status.Status

	done chan struct{}
}

func newReply() *Reply {
	return &Reply{done: make(chan struct{})}
}

// Finish completes the reply successfully. Channel side, owner loop.
func (r *Reply) Finish(data []byte) {
	if r.completed {
		return
	}
	r.completed = true
	r.data = data
	r.st = status.OK
	onFinish := r.onFinish
	close(r.done)
	if onFinish != nil {
		onFinish()
	}
}

// Fail completes the reply with an error. Channel side, owner loop.
func (r *Reply) Fail(st status.Status) {
	if r.completed {
		return
	}
	r.completed = true
	r.st = st
	onError := r.onError
	close(r.done)
	if onError != nil {
		onError(st)
	}
}

// Done is closed once the reply completed.
func (r *Reply) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome. Before completion it reports Unavailable;
// wait on Done or use Wait.
func (r *Reply) Result() ([]byte, status.Status) {
	select {
	case <-r.done:
		return r.data, r.st
	default:
		return nil, status.New(codes.Unavailable, "call still in flight")
	}
}

// Wait blocks until the reply completed or ctx ended.
func (r *Reply) Wait(ctx context.Context) ([]byte, status.Status) {
	select {
	case <-r.done:
		return r.data, r.st
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, status.New(codes.DeadlineExceeded, ctx.Err().Error())
		}
		return nil, status.New(codes.Canceled, ctx.Err().Error())
	}
}

func (r *Reply) detach() {
	r.onError = nil
	r.onFinish = nil
}
