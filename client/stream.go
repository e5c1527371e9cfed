package client

import (
	"bytes"

	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/status"
)

// Handler receives one message delivered on a stream.
type Handler func(data []byte)

// Stream is one active server-streaming subscription. Two streams are
// equivalent iff method and argument bytes match; the client keeps at most
// one active stream per equivalence class and fans deliveries out to every
// attached handler.
//
// Push, Fail and Finish are driven by the channel on the owner loop.
// Error and finish are mutually exclusive and fire at most once per
// generation; a successful reconnect starts a new generation.
type Stream struct {
	loop   *eventloop.Loop
	method string
	arg    []byte

	// loop confined
	handlers []Handler
	errored  bool
	finished bool
	onError  func(status.Status)
	onFinish func()

	done chan struct{}
}

func newStream(loop *eventloop.Loop, method string, arg []byte, handler Handler) *Stream {
	s := &Stream{
		loop:   loop,
		method: method,
		arg:    arg,
		done:   make(chan struct{}),
	}
	s.addHandler(handler)
	return s
}

func (s *Stream) Method() string {
	return s.method
}

func (s *Stream) Argument() []byte {
	return s.arg
}

// Equal reports stream equivalence: same method, same argument bytes.
func (s *Stream) Equal(other *Stream) bool {
	return other != nil && s.method == other.method && bytes.Equal(s.arg, other.arg)
}

// AddHandler attaches another interested handler. Handlers are invoked in
// attachment order.
func (s *Stream) AddHandler(handler Handler) {
	_ = s.loop.Do(func() {
		s.addHandler(handler)
	})
}

func (s *Stream) addHandler(handler Handler) {
	if handler == nil {
		return
	}
	s.handlers = append(s.handlers, handler)
}

// Push delivers one message to every handler. Channel side, owner loop.
func (s *Stream) Push(data []byte) {
	if s.finished {
		return
	}
	// data flowing again means the last resubscribe took
	s.errored = false
	for _, h := range s.handlers {
		h(data)
	}
}

// Fail reports a transport error on the stream. Channel side, owner loop.
// The stream stays alive; the client schedules a resubscribe.
func (s *Stream) Fail(st status.Status) {
	if s.finished || s.errored {
		return
	}
	s.errored = true
	if s.onError != nil {
		s.onError(st)
	}
}

// Finish ends the stream for good. Channel side, owner loop.
func (s *Stream) Finish() {
	if s.finished {
		return
	}
	s.finished = true
	close(s.done)
	if s.onFinish != nil {
		s.onFinish()
	}
}

// Done is closed once the stream finished.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription from the application side. The stream is
// removed from the client and will not be reconnected.
func (s *Stream) Close() {
	_ = s.loop.Do(s.Finish)
}

func (s *Stream) detach() {
	s.onError = nil
	s.onFinish = nil
}
