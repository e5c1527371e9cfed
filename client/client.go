// Package client implements the RPC client facade: blocking unary calls,
// asynchronous unary calls and server-streaming subscriptions over one
// attached transport channel.
//
// A client is owned by a single event loop goroutine. Entry points may be
// called from any goroutine; off-loop callers are blocked while the
// operation is relayed onto the loop, so results are identical either way.
package client

import (
	"bytes"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/f0mster/rpcclient/channel"
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/interfaces/logger"
	"github.com/f0mster/rpcclient/serializer"
	"github.com/f0mster/rpcclient/status"
)

// DefaultReconnectBackoff is the delay between a stream transport error
// and the next resubscribe attempt when Config does not override it.
const DefaultReconnectBackoff = time.Second

var (
	statusNoChannel = status.New(codes.Unknown, "No channel(s) attached.")
	statusClosed    = status.New(codes.Unavailable, "client closed")
)

type CancelFunc func()

type Config struct {
	// Loop is the owner loop. Leave nil to let the client start its own;
	// share one loop between the client and its channel otherwise.
	Loop *eventloop.Loop
	// Channel to attach right away. Optional, see AttachChannel.
	Channel          channel.Channel
	Serializer       serializer.Serializer
	Logger           logger.Logger
	ReconnectBackoff time.Duration
}

type Client struct {
	service string
	loop    *eventloop.Loop
	ownLoop bool
	cfg     Config

	// everything below is loop confined
	channel       channel.Channel
	serializer    serializer.Serializer
	activeStreams []*Stream
	pending       map[*Reply]struct{}
	errWatchers   map[int64]func(status.Status)
	lastWatcher   int64
	closed        bool
}

func New(service string, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = &logger.DefaultLogger{}
	}
	if cfg.Serializer == nil {
		cfg.Serializer = &serializer.DefaultSerializer{}
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	c := &Client{
		service:     service,
		cfg:         cfg,
		serializer:  cfg.Serializer,
		pending:     map[*Reply]struct{}{},
		errWatchers: map[int64]func(status.Status){},
	}
	if cfg.Loop != nil {
		c.loop = cfg.Loop
	} else {
		c.loop = eventloop.New()
		c.ownLoop = true
	}
	if cfg.Channel != nil {
		_ = c.loop.Do(func() {
			c.AttachChannel(cfg.Channel)
		})
	}
	return c
}

func (c *Client) Service() string {
	return c.service
}

func (c *Client) Loop() *eventloop.Loop {
	return c.loop
}

// Serializer returns the serializer of the attached channel, or the
// configured default while no channel is attached.
func (c *Client) Serializer() (s serializer.Serializer) {
	_ = c.loop.Do(func() {
		s = c.serializer
	})
	return
}

// AttachChannel attaches the transport the client will call through.
// Attaching again overwrites the previous channel.
//
// It must be called on the owner loop, and the channel must deliver its
// callbacks on that same loop. Both violations are programming errors and
// panic: attachment is one-time setup, not a per-request operation, so it
// is not relayed the way Call and Subscribe are.
func (c *Client) AttachChannel(ch channel.Channel) {
	if !c.loop.IsCurrent() {
		panic("rpcclient: AttachChannel called from a goroutine other than the owner loop")
	}
	if ch.Loop() != c.loop {
		panic("rpcclient: channel is bound to a different event loop than the client")
	}
	c.channel = ch
	c.serializer = ch.Serializer()
}

// OnError registers a watcher for every non-OK status any call, subscribe
// or in-flight stream of this client reports. The returned CancelFunc
// removes it.
func (c *Client) OnError(watcher func(status.Status)) CancelFunc {
	var id int64
	_ = c.loop.Do(func() {
		id = c.lastWatcher
		c.lastWatcher++
		c.errWatchers[id] = watcher
	})
	return func() {
		_ = c.loop.Do(func() {
			delete(c.errWatchers, id)
		})
	}
}

// Call performs a blocking unary call. With no channel attached it
// returns Unknown/"No channel(s) attached." and raises the error
// notification; the response stays nil.
func (c *Client) Call(method string, arg []byte) (resp []byte, st status.Status) {
	if !c.loop.IsCurrent() {
		c.cfg.Logger.Debug("called from different goroutine", c.service, method)
	}
	if err := c.loop.Do(func() {
		resp, st = c.call(method, arg)
	}); err != nil {
		return nil, statusClosed
	}
	return resp, st
}

func (c *Client) call(method string, arg []byte) ([]byte, status.Status) {
	if c.closed {
		return nil, statusClosed
	}
	if c.channel == nil {
		c.notifyError(statusNoChannel)
		return nil, statusNoChannel
	}
	resp, st := c.channel.Call(method, c.service, arg)
	if !st.Ok() {
		c.notifyError(st)
	}
	return resp, st
}

// CallProto marshals req through the client serializer, performs a
// blocking call and unmarshals the response into resp. Serialization
// failures are local and are not broadcast as error notifications.
func (c *Client) CallProto(method string, req, resp interface{}) (st status.Status) {
	_ = c.loop.Do(func() {
		data, err := c.serializer.Marshal(req)
		if err != nil {
			st = status.FromError(err)
			return
		}
		var out []byte
		out, st = c.call(method, data)
		if !st.Ok() {
			return
		}
		if err := c.serializer.Unmarshal(out, resp); err != nil {
			st = status.FromError(err)
		}
	})
	return
}

// CallAsync starts a unary call and returns a reply handle that completes
// exactly once. With no channel attached it returns nil and raises the
// error notification.
func (c *Client) CallAsync(method string, arg []byte) (reply *Reply) {
	if !c.loop.IsCurrent() {
		c.cfg.Logger.Debug("called from different goroutine", c.service, method)
	}
	if err := c.loop.Do(func() {
		reply = c.callAsync(method, arg)
	}); err != nil {
		return nil
	}
	return reply
}

func (c *Client) callAsync(method string, arg []byte) *Reply {
	if c.closed {
		return nil
	}
	if c.channel == nil {
		c.notifyError(statusNoChannel)
		return nil
	}
	r := newReply()
	// The two completion paths are one-shot: whichever fires first
	// detaches both and drops the client's reference to the handle.
	r.onError = func(st status.Status) {
		r.detach()
		delete(c.pending, r)
		c.notifyError(st)
	}
	r.onFinish = func() {
		r.detach()
		delete(c.pending, r)
	}
	c.pending[r] = struct{}{}
	c.channel.CallAsync(method, c.service, arg, r)
	return r
}

// Subscribe starts (or joins) a server-streaming subscription. Subscribing
// to a method/argument pair that already has an active stream attaches
// handler to the existing stream and returns it; only one transport
// subscription exists per distinct pair. With no channel attached it
// returns nil and raises the error notification.
func (c *Client) Subscribe(method string, arg []byte, handler Handler) (stream *Stream) {
	if !c.loop.IsCurrent() {
		c.cfg.Logger.Debug("subscribe from different goroutine", c.service, method)
	}
	if err := c.loop.Do(func() {
		stream = c.subscribe(method, arg, handler)
	}); err != nil {
		return nil
	}
	return stream
}

func (c *Client) subscribe(method string, arg []byte, handler Handler) *Stream {
	if c.closed {
		return nil
	}
	if c.channel == nil {
		c.notifyError(statusNoChannel)
		return nil
	}

	for _, s := range c.activeStreams {
		if s.method == method && bytes.Equal(s.arg, arg) {
			s.addHandler(handler)
			return s
		}
	}

	s := newStream(c.loop, method, arg, handler)
	s.onError = func(st status.Status) {
		c.cfg.Logger.Error(st.Err(), "stream error", c.service, method, st.Message)
		c.notifyError(st)
		c.loop.After(c.cfg.ReconnectBackoff, func() {
			// The stream may be gone by now; resubscribe only while it
			// is still the registered stream for this key.
			if c.findStream(method, arg) == s {
				s.errored = false
				c.channel.Subscribe(s, c.service)
			} else {
				c.cfg.Logger.Debug("stream will not be restored by timeout", c.service, method)
			}
		})
	}
	s.onFinish = func() {
		c.cfg.Logger.Info("stream finished", c.service, method)
		c.removeStream(s)
		s.detach()
	}
	c.channel.Subscribe(s, c.service)
	c.activeStreams = append(c.activeStreams, s)
	return s
}

// Close finishes every active stream, fails pending replies with Canceled
// and, when the client started its own loop, stops it. Further calls
// degrade to an Unavailable status.
func (c *Client) Close() {
	_ = c.loop.Do(func() {
		if c.closed {
			return
		}
		c.closed = true
		streams := append([]*Stream(nil), c.activeStreams...)
		for _, s := range streams {
			s.Finish()
		}
		c.activeStreams = nil
		for r := range c.pending {
			r.Fail(status.New(codes.Canceled, "client closed"))
		}
	})
	if c.ownLoop {
		c.loop.Close()
	}
}

func (c *Client) findStream(method string, arg []byte) *Stream {
	for _, s := range c.activeStreams {
		if s.method == method && bytes.Equal(s.arg, arg) {
			return s
		}
	}
	return nil
}

func (c *Client) removeStream(s *Stream) {
	for i, a := range c.activeStreams {
		if a == s {
			c.activeStreams = append(c.activeStreams[:i], c.activeStreams[i+1:]...)
			return
		}
	}
}

func (c *Client) notifyError(st status.Status) {
	for _, w := range c.errWatchers {
		w(st)
	}
}
