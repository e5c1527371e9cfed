// Package memory is an in-process channel. The serving side registers
// unary and stream handlers on the same object; it backs local wiring and
// the conformance tests of the client itself.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/f0mster/rpcclient/channel"
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/serializer"
	"github.com/f0mster/rpcclient/status"
)

// Handler serves one unary method.
type Handler func(args []byte) (response []byte, err error)

// StreamHandler serves one subscription. It should block until the stream
// is over, pushing messages through send; send fails once the subscriber
// is gone. Returning nil finishes the stream, returning an error fails it.
type StreamHandler func(args []byte, send func(data []byte) error) error

type Channel struct {
	id      uuid.UUID
	loop    *eventloop.Loop
	timeout time.Duration
	ser     serializer.Serializer

	mutex          sync.Mutex
	handlers       map[string]Handler
	streamHandlers map[string]StreamHandler
}

func New(loop *eventloop.Loop, timeout time.Duration) *Channel {
	return &Channel{
		id:             uuid.New(),
		loop:           loop,
		timeout:        timeout,
		ser:            &serializer.DefaultSerializer{},
		handlers:       map[string]Handler{},
		streamHandlers: map[string]StreamHandler{},
	}
}

func (c *Channel) GetRPCAddress() string {
	return fmt.Sprintf("memory://%s", c.id.String())
}

// Handle registers the serving side of a unary method.
func (c *Channel) Handle(service, method string, h Handler) {
	c.mutex.Lock()
	c.handlers[service+"/"+method] = h
	c.mutex.Unlock()
}

// HandleStream registers the serving side of a subscription method.
func (c *Channel) HandleStream(service, method string, h StreamHandler) {
	c.mutex.Lock()
	c.streamHandlers[service+"/"+method] = h
	c.mutex.Unlock()
}

func (c *Channel) lookup(service, method string) (Handler, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	h, ok := c.handlers[service+"/"+method]
	return h, ok
}

func (c *Channel) lookupStream(service, method string) (StreamHandler, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	h, ok := c.streamHandlers[service+"/"+method]
	return h, ok
}

func (c *Channel) Call(method string, service string, args []byte) ([]byte, status.Status) {
	h, ok := c.lookup(service, method)
	if !ok {
		return nil, status.Newf(codes.Unimplemented, "no handler for %s/%s", service, method)
	}

	type result struct {
		response []byte
		err      error
	}
	respCh := make(chan result, 1)
	go func() {
		resp, err := h(args)
		respCh <- result{response: resp, err: err}
	}()

	select {
	case <-time.After(c.timeout):
		return nil, status.New(codes.DeadlineExceeded, "")
	case res := <-respCh:
		if res.err != nil {
			return nil, status.FromError(res.err)
		}
		return res.response, status.OK
	}
}

func (c *Channel) CallAsync(method string, service string, args []byte, reply channel.Reply) {
	go func() {
		resp, st := c.Call(method, service, args)
		c.loop.Post(func() {
			if st.Ok() {
				reply.Finish(resp)
			} else {
				reply.Fail(st)
			}
		})
	}()
}

func (c *Channel) Subscribe(stream channel.Stream, service string) {
	h, ok := c.lookupStream(service, stream.Method())
	if !ok {
		st := status.Newf(codes.Unimplemented, "no stream handler for %s/%s", service, stream.Method())
		c.loop.Post(func() {
			stream.Fail(st)
		})
		return
	}

	go func() {
		send := func(data []byte) error {
			select {
			case <-stream.Done():
				return fmt.Errorf("memory: stream is finished")
			default:
			}
			c.loop.Post(func() {
				stream.Push(data)
			})
			return nil
		}
		err := h(stream.Argument(), send)
		select {
		case <-stream.Done():
			// subscriber already gone, nothing to deliver
			return
		default:
		}
		c.loop.Post(func() {
			if err != nil {
				stream.Fail(status.FromError(err))
			} else {
				stream.Finish()
			}
		})
	}()
}

func (c *Channel) Serializer() serializer.Serializer {
	return c.ser
}

func (c *Channel) Loop() *eventloop.Loop {
	return c.loop
}
