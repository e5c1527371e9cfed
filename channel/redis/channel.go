// Package redis is a channel over redis: unary requests go through a list
// used as a queue, responses and stream data come back over pubsub topics.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mediocregopher/radix/v3"
	"google.golang.org/grpc/codes"

	"github.com/f0mster/rpcclient/channel"
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/pkg/rnd"
	"github.com/f0mster/rpcclient/serializer"
	"github.com/f0mster/rpcclient/status"
)

type Channel struct {
	loop    *eventloop.Loop
	pool    *radix.Pool
	pubsub  radix.PubSubConn
	timeout time.Duration
	ser     serializer.Serializer
	address string
}

type RequestMsg struct {
	Method     string
	Arguments  []byte
	ResponseTo string
}

type ResponseMsg struct {
	Response []byte
	Code     uint32
	Err      string
}

type SubscribeMsg struct {
	Method   string
	Argument []byte
	Topic    string
}

type StreamMsg struct {
	Data []byte
	Done bool
	Code uint32
	Err  string
}

func New(network, addr string, poolsize int, timeout time.Duration, loop *eventloop.Loop) (inst *Channel, err error) {
	inst = &Channel{
		loop:    loop,
		timeout: timeout,
		ser:     &serializer.DefaultSerializer{},
	}
	inst.pool, err = radix.NewPool(network, addr, poolsize)
	if err != nil {
		return nil, fmt.Errorf("radix pool create error: %w", err)
	}
	inst.pubsub, err = radix.PersistentPubSubWithOpts(network, addr)
	if err != nil {
		return nil, fmt.Errorf("radix pubsub create error: %w", err)
	}
	inst.address, err = rnd.GenerateRandomString(20)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (c *Channel) Close() {
	c.pool.Close()
	c.pubsub.Close()
}

func (c *Channel) GetRPCAddress() string {
	return c.address
}

func (c *Channel) Call(method string, service string, args []byte) (response []byte, st status.Status) {
	msgCh := make(chan radix.PubSubMessage, 10000)
	myTopic, err := rnd.GenerateRandomString(20)
	if err != nil {
		return nil, status.FromError(err)
	}
	if err = c.pubsub.Subscribe(msgCh, myTopic); err != nil {
		return nil, status.FromError(err)
	}
	defer func() {
		_ = c.pubsub.Unsubscribe(msgCh, myTopic)
	}()

	req := RequestMsg{
		Method:     method,
		Arguments:  args,
		ResponseTo: myTopic,
	}
	sreq, err := json.Marshal(req)
	if err != nil {
		return nil, status.FromError(err)
	}
	if err = c.pool.Do(radix.Cmd(nil, "RPUSH", service+".rpc.queue", string(sreq))); err != nil {
		return nil, status.New(codes.Unavailable, err.Error())
	}
	if err = c.pool.Do(radix.Cmd(nil, "PUBLISH", service+".rpc.wake", "1")); err != nil {
		return nil, status.New(codes.Unavailable, err.Error())
	}

	ticker := time.NewTimer(c.timeout)
	defer ticker.Stop()

	select {
	case <-ticker.C:
		return nil, status.New(codes.DeadlineExceeded, "rpc request timeout")
	case msg := <-msgCh:
		resp := ResponseMsg{}
		if err = json.Unmarshal(msg.Message, &resp); err != nil {
			return nil, status.FromError(err)
		}
		if resp.Err != "" {
			code := codes.Code(resp.Code)
			if code == codes.OK {
				code = codes.Unknown
			}
			return nil, status.New(code, resp.Err)
		}
		return resp.Response, status.OK
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
	topic, err := rnd.GenerateRandomString(20)
	if err != nil {
		c.failOnLoop(stream, status.FromError(err))
		return
	}
	msgCh := make(chan radix.PubSubMessage, 10000)
	if err = c.pubsub.Subscribe(msgCh, topic); err != nil {
		c.failOnLoop(stream, status.FromError(err))
		return
	}

	req := SubscribeMsg{
		Method:   stream.Method(),
		Argument: stream.Argument(),
		Topic:    topic,
	}
	sreq, err := json.Marshal(req)
	if err != nil {
		_ = c.pubsub.Unsubscribe(msgCh, topic)
		c.failOnLoop(stream, status.FromError(err))
		return
	}
	if err = c.pool.Do(radix.Cmd(nil, "RPUSH", service+".stream.queue", string(sreq))); err != nil {
		_ = c.pubsub.Unsubscribe(msgCh, topic)
		c.failOnLoop(stream, status.New(codes.Unavailable, err.Error()))
		return
	}
	if err = c.pool.Do(radix.Cmd(nil, "PUBLISH", service+".stream.wake", "1")); err != nil {
		_ = c.pubsub.Unsubscribe(msgCh, topic)
		c.failOnLoop(stream, status.New(codes.Unavailable, err.Error()))
		return
	}

	go func() {
		defer func() {
			_ = c.pubsub.Unsubscribe(msgCh, topic)
		}()
		for {
			select {
			case <-stream.Done():
				return
			case msg := <-msgCh:
				sm := StreamMsg{}
				if err := json.Unmarshal(msg.Message, &sm); err != nil {
					c.failOnLoop(stream, status.FromError(err))
					return
				}
				if sm.Err != "" {
					code := codes.Code(sm.Code)
					if code == codes.OK {
						code = codes.Unknown
					}
					c.failOnLoop(stream, status.New(code, sm.Err))
					return
				}
				if sm.Done {
					c.loop.Post(stream.Finish)
					return
				}
				data := sm.Data
				c.loop.Post(func() {
					stream.Push(data)
				})
			}
		}
	}()
}

func (c *Channel) failOnLoop(stream channel.Stream, st status.Status) {
	c.loop.Post(func() {
		stream.Fail(st)
	})
}

func (c *Channel) Serializer() serializer.Serializer {
	return c.ser
}

func (c *Channel) Loop() *eventloop.Loop {
	return c.loop
}

// Listen serves unary requests for a service until the returned cancel
// func is called.
func (c *Channel) Listen(service string, onListen func(method string, arguments []byte) (response []byte, err error)) context.CancelFunc {
	do := true
	msgCh := make(chan radix.PubSubMessage, 10000)
	if err := c.pubsub.Subscribe(msgCh, service+".rpc.wake"); err != nil {
		fmt.Println(err.Error())
	}

	go func() {
		for do {
			var raw string
			err := c.pool.Do(radix.Cmd(&raw, "LPOP", service+".rpc.queue"))
			if err != nil && err != io.EOF {
				fmt.Println("radix error", err.Error())
				return
			}
			if len(raw) > 0 {
				req := RequestMsg{}
				if err = json.Unmarshal([]byte(raw), &req); err != nil {
					continue
				}
				resp, err := onListen(req.Method, req.Arguments)
				respMsg := ResponseMsg{Response: resp}
				if err != nil {
					st := status.FromError(err)
					respMsg.Err = st.Message
					respMsg.Code = uint32(st.Code)
					if respMsg.Err == "" {
						respMsg.Err = st.Code.String()
					}
				}
				res, _ := json.Marshal(respMsg)
				_ = c.pool.Do(radix.Cmd(nil, "PUBLISH", req.ResponseTo, string(res)))
			} else {
				for len(msgCh) > 0 {
					<-msgCh
				}
				<-msgCh
			}
		}
	}()
	return func() {
		do = false
		_ = c.pubsub.Unsubscribe(msgCh, service+".rpc.wake")
		msgCh <- radix.PubSubMessage{}
		close(msgCh)
	}
}

// ListenStreams serves subscription requests for a service. Each incoming
// subscription runs onSubscribe in its own goroutine; data pushed through
// send is published to the subscriber, and the handler's return finishes
// or fails the remote stream.
func (c *Channel) ListenStreams(service string, onSubscribe func(method string, argument []byte, send func(data []byte) error) error) context.CancelFunc {
	do := true
	msgCh := make(chan radix.PubSubMessage, 10000)
	if err := c.pubsub.Subscribe(msgCh, service+".stream.wake"); err != nil {
		fmt.Println(err.Error())
	}

	publish := func(topic string, sm StreamMsg) error {
		data, err := json.Marshal(sm)
		if err != nil {
			return err
		}
		return c.pool.Do(radix.Cmd(nil, "PUBLISH", topic, string(data)))
	}

	go func() {
		for do {
			var raw string
			err := c.pool.Do(radix.Cmd(&raw, "LPOP", service+".stream.queue"))
			if err != nil && err != io.EOF {
				fmt.Println("radix error", err.Error())
				return
			}
			if len(raw) > 0 {
				req := SubscribeMsg{}
				if err = json.Unmarshal([]byte(raw), &req); err != nil {
					continue
				}
				go func() {
					send := func(data []byte) error {
						return publish(req.Topic, StreamMsg{Data: data})
					}
					if err := onSubscribe(req.Method, req.Argument, send); err != nil {
						st := status.FromError(err)
						errText := st.Message
						if errText == "" {
							errText = st.Code.String()
						}
						_ = publish(req.Topic, StreamMsg{Err: errText, Code: uint32(st.Code)})
					} else {
						_ = publish(req.Topic, StreamMsg{Done: true})
					}
				}()
			} else {
				for len(msgCh) > 0 {
					<-msgCh
				}
				<-msgCh
			}
		}
	}()
	return func() {
		do = false
		_ = c.pubsub.Unsubscribe(msgCh, service+".stream.wake")
		msgCh <- radix.PubSubMessage{}
		close(msgCh)
	}
}
