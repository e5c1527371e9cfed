package eventloop_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/rpcclient/eventloop"
)

func TestDoRunsOnLoopGoroutine(t *testing.T) {
	l := eventloop.New()
	defer l.Close()

	require.False(t, l.IsCurrent())

	onLoop := false
	err := l.Do(func() {
		onLoop = l.IsCurrent()
	})
	require.NoError(t, err)
	require.True(t, onLoop)
}

func TestDoInlineWhenCurrent(t *testing.T) {
	l := eventloop.New()
	defer l.Close()

	// nested Do from within a job must not deadlock
	ran := false
	err := l.Do(func() {
		require.NoError(t, l.Do(func() {
			ran = true
		}))
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestDoConcurrent(t *testing.T) {
	l := eventloop.New()
	defer l.Close()

	n := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Do(func() {
				// loop confined, no lock needed
				n++
			}))
		}()
	}
	wg.Wait()
	require.Equal(t, 100, n)
}

func TestAfter(t *testing.T) {
	l := eventloop.New()
	defer l.Close()

	fired := make(chan bool, 1)
	l.After(10*time.Millisecond, func() {
		fired <- l.IsCurrent()
	})

	select {
	case onLoop := <-fired:
		require.True(t, onLoop)
	case <-time.After(time.Second):
		t.Fatal("timer callback never fired")
	}
}

func TestDoPanicPropagates(t *testing.T) {
	l := eventloop.New()
	defer l.Close()

	require.PanicsWithValue(t, "boom", func() {
		_ = l.Do(func() {
			panic("boom")
		})
	})

	// the loop must survive the panic
	ran := false
	require.NoError(t, l.Do(func() { ran = true }))
	require.True(t, ran)
}

func TestDoAfterClose(t *testing.T) {
	l := eventloop.New()
	l.Close()

	err := l.Do(func() {
		t.Fatal("job ran on closed loop")
	})
	require.Equal(t, eventloop.ErrStopped, err)
}
