// Package channel defines the boundary between the client and the
// transport performing the actual I/O. Implementations live in the
// subpackages (memory, redis, kafka).
package channel

import (
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/serializer"
	"github.com/f0mster/rpcclient/status"
)

// Reply is the channel-facing side of one in-flight asynchronous call.
// A channel must eventually drive it to completion by calling exactly one
// of Finish or Fail, on the owner loop.
type Reply interface {
	Finish(data []byte)
	Fail(st status.Status)
}

// Stream is the channel-facing side of one active subscription. Push,
// Fail and Finish must be called on the owner loop. Done is closed once
// the stream finished; transports use it to stop delivering.
type Stream interface {
	Method() string
	Argument() []byte
	Push(data []byte)
	Fail(st status.Status)
	Finish()
	Done() <-chan struct{}
}

// Channel performs transport I/O for one protocol binding.
//
// Call is synchronous and must not depend on the owner loop making
// progress while it runs (the loop is blocked inside it). CallAsync and
// Subscribe return immediately and deliver results through the handle,
// always on the loop returned by Loop.
type Channel interface {
	Call(method string, service string, args []byte) (response []byte, st status.Status)
	CallAsync(method string, service string, args []byte, reply Reply)
	Subscribe(stream Stream, service string)
	Serializer() serializer.Serializer
	Loop() *eventloop.Loop
}
