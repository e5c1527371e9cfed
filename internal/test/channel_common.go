// Package tests holds the conformance suite every channel implementation
// runs: a channel that passes behaves identically under the client facade.
package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/f0mster/rpcclient/channel"
	"github.com/f0mster/rpcclient/client"
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/internal/testlogger"
	"github.com/f0mster/rpcclient/pkg/rnd"
	"github.com/f0mster/rpcclient/status"
)

type UnaryHandler func(args []byte) (response []byte, err error)

type StreamHandler func(args []byte, send func(data []byte) error) error

// Registrar adapts a channel's serving side to the suite.
type Registrar struct {
	Unary  func(service, method string, h UnaryHandler)
	Stream func(service, method string, h StreamHandler)
}

func randomService(t *testing.T) string {
	s, err := rnd.GenerateRandomString(12)
	require.NoError(t, err)
	return "svc" + s
}

// ChannelCallTest checks blocking and asynchronous unary calls through
// the client facade.
func ChannelCallTest(t *testing.T, loop *eventloop.Loop, ch channel.Channel, reg Registrar) {
	service := randomService(t)
	reg.Unary(service, "Echo", func(args []byte) ([]byte, error) {
		return append([]byte("re: "), args...), nil
	})
	reg.Unary(service, "Boom", func(args []byte) ([]byte, error) {
		return nil, status.New(codes.FailedPrecondition, "boom").Err()
	})

	c := client.New(service, client.Config{Loop: loop, Channel: ch, Logger: testlogger.New(t)})
	defer c.Close()

	resp, st := c.Call("Echo", []byte("hello"))
	require.True(t, st.Ok(), "echo failed: %s", st)
	require.Equal(t, []byte("re: hello"), resp)

	_, st = c.Call("Boom", []byte("hello"))
	require.Equal(t, codes.FailedPrecondition, st.Code)
	require.Equal(t, "boom", st.Message)

	reply := c.CallAsync("Echo", []byte("async"))
	require.NotNil(t, reply)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, st = reply.Wait(ctx)
	require.True(t, st.Ok(), "async echo failed: %s", st)
	require.Equal(t, []byte("re: async"), resp)
}

// ChannelStreamTest checks a subscription delivering a finite stream and
// finishing gracefully.
func ChannelStreamTest(t *testing.T, loop *eventloop.Loop, ch channel.Channel, reg Registrar) {
	service := randomService(t)
	reg.Stream(service, "Count", func(args []byte, send func(data []byte) error) error {
		for i := 0; i < 5; i++ {
			if err := send([]byte(fmt.Sprintf("%s-%d", args, i))); err != nil {
				return err
			}
		}
		return nil
	})

	c := client.New(service, client.Config{Loop: loop, Channel: ch, Logger: testlogger.New(t)})
	defer c.Close()

	var events []string
	s := c.Subscribe("Count", []byte("k"), func(data []byte) {
		events = append(events, string(data))
	})
	require.NotNil(t, s)

	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("stream did not finish")
	}

	// events were appended on the owner loop before Done was closed
	require.Equal(t, []string{"k-0", "k-1", "k-2", "k-3", "k-4"}, events)
}

// ChannelStreamErrorTest checks that a failing stream handler surfaces as
// an error notification rather than a finish.
func ChannelStreamErrorTest(t *testing.T, loop *eventloop.Loop, ch channel.Channel, reg Registrar) {
	service := randomService(t)
	reg.Stream(service, "Broken", func(args []byte, send func(data []byte) error) error {
		return status.New(codes.Internal, "stream handler broke").Err()
	})

	c := client.New(service, client.Config{
		Loop:    loop,
		Channel: ch,
		Logger:  testlogger.New(t),
		// keep the suite fast and avoid a real resubscribe storm
		ReconnectBackoff: time.Hour,
	})
	defer c.Close()

	errCh := make(chan status.Status, 1)
	c.OnError(func(st status.Status) {
		select {
		case errCh <- st:
		default:
		}
	})

	s := c.Subscribe("Broken", []byte("k"), func([]byte) {})
	require.NotNil(t, s)

	select {
	case st := <-errCh:
		require.Equal(t, codes.Internal, st.Code)
		require.Equal(t, "stream handler broke", st.Message)
	case <-time.After(10 * time.Second):
		t.Fatal("stream error never surfaced")
	}
}
