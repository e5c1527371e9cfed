package redis_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	redischan "github.com/f0mster/rpcclient/channel/redis"
	"github.com/f0mster/rpcclient/eventloop"
	tests "github.com/f0mster/rpcclient/internal/test"
)

/*
  Внимание!

  Для запуска необходим docker.

  Адрес указывается через переменную окружения DOCKER_HOST.

*/

type TestContext struct {
	redisAddr string

	dockerPool *dockertest.Pool
	dbRes      *dockertest.Resource
}

func getAddr(dockerEndpoint, port string) string {
	// experimental support of local docker daemon
	dockerEndpoint = strings.Replace(dockerEndpoint, "tcp://", "", 1)

	host := strings.Split(dockerEndpoint, ":")[0]

	if strings.Contains(dockerEndpoint, "unix:") || strings.Contains(dockerEndpoint, "http://localhost:") {
		host = "0.0.0.0"
	}

	return fmt.Sprintf("%s:%s", host, port)
}

func (tc *TestContext) SetUp(t testing.TB) {
	t.Log("SetUp")

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	if p, e := dockertest.NewPool(""); e != nil {
		t.Fatalf("Could not connect to docker: %s", e)
	} else {
		tc.dockerPool = p
	}

	// pulls an image, creates a container based on it and runs it
	if r, e := tc.dockerPool.Run(
		"redis",
		"6.0.8-alpine3.12",
		nil,
	); e != nil {
		t.Fatalf("Could not start resource: %s", e)
	} else {
		tc.dbRes = r
	}

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	tc.redisAddr = getAddr(tc.dockerPool.Client.Endpoint(), tc.dbRes.GetPort("6379/tcp"))
	if err := tc.dockerPool.Retry(func() error {
		conn, err := radix.Dial("tcp", tc.redisAddr)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.Do(radix.Cmd(nil, "PING"))
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
}

func (tc *TestContext) TearDown(t testing.TB) {
	t.Log("TearDown")

	if err := tc.dockerPool.Purge(tc.dbRes); err != nil {
		t.Fatalf("Could not purge resource: %s", err)
	}
	tc.dbRes = nil
}

// registrar serves suite handlers over the channel's Listen side.
type registrar struct {
	ch *redischan.Channel

	mu       sync.Mutex
	unary    map[string]tests.UnaryHandler
	stream   map[string]tests.StreamHandler
	services map[string]bool
	cancels  []func()
}

func newRegistrar(ch *redischan.Channel) *registrar {
	return &registrar{
		ch:       ch,
		unary:    map[string]tests.UnaryHandler{},
		stream:   map[string]tests.StreamHandler{},
		services: map[string]bool{},
	}
}

func (r *registrar) listen(service string) {
	if r.services[service] {
		return
	}
	r.services[service] = true
	cancelCall := r.ch.Listen(service, func(method string, arguments []byte) ([]byte, error) {
		r.mu.Lock()
		h := r.unary[service+"/"+method]
		r.mu.Unlock()
		if h == nil {
			return nil, fmt.Errorf("no handler for %s/%s", service, method)
		}
		return h(arguments)
	})
	cancelStream := r.ch.ListenStreams(service, func(method string, argument []byte, send func(data []byte) error) error {
		r.mu.Lock()
		h := r.stream[service+"/"+method]
		r.mu.Unlock()
		if h == nil {
			return fmt.Errorf("no stream handler for %s/%s", service, method)
		}
		return h(argument, send)
	})
	r.cancels = append(r.cancels, cancelCall, cancelStream)
}

func (r *registrar) Registrar() tests.Registrar {
	return tests.Registrar{
		Unary: func(service, method string, h tests.UnaryHandler) {
			r.mu.Lock()
			r.unary[service+"/"+method] = h
			r.mu.Unlock()
			r.listen(service)
		},
		Stream: func(service, method string, h tests.StreamHandler) {
			r.mu.Lock()
			r.stream[service+"/"+method] = h
			r.mu.Unlock()
			r.listen(service)
		},
	}
}

func (r *registrar) Close() {
	for _, cancel := range r.cancels {
		cancel()
	}
}

func TestRedisChannel(t *testing.T) {
	tctx := TestContext{}
	tctx.SetUp(t)
	defer tctx.TearDown(t)

	loop := eventloop.New()
	defer loop.Close()

	ch, err := redischan.New("tcp", tctx.redisAddr, 8, 60*time.Second, loop)
	require.NoError(t, err)
	defer ch.Close()

	reg := newRegistrar(ch)
	defer reg.Close()

	t.Run("call", func(t *testing.T) {
		tests.ChannelCallTest(t, loop, ch, reg.Registrar())
	})
	t.Run("stream", func(t *testing.T) {
		tests.ChannelStreamTest(t, loop, ch, reg.Registrar())
	})
	t.Run("stream error", func(t *testing.T) {
		tests.ChannelStreamErrorTest(t, loop, ch, reg.Registrar())
	})
}
