package ccr

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeqLockRoundTrip(t *testing.T) {
	var s SeqLock
	s.Store(42)
	require.Equal(t, uint64(42), s.Load())
	s.Store(7)
	require.Equal(t, uint64(7), s.Load())
}

func TestFloatSeqLockRoundTrip(t *testing.T) {
	var f FloatSeqLock
	f.Store(1.0003)
	require.InDelta(t, 1.0003, f.Load(), 1e-9)
}

func TestQueueFIFOSingleProducer(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 100; i++ {
		require.True(t, q.Push(i))
	}
	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestQueueMultiProducer(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	producers := 8
	perProducer := 200

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}

	got := make([]int, 0, producers*perProducer)
	done := make(chan struct{})
	go func() {
		for len(got) < producers*perProducer {
			v, ok := q.Pop()
			if !ok {
				return
			}
			got = append(got, v.(int))
		}
		close(done)
	}()

	wg.Wait()
	<-done
	require.Len(t, got, producers*perProducer)
}

func TestQueueCloseDrains(t *testing.T) {
	q := NewQueue()
	q.Push(1)
	q.Push(2)
	q.Close()

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestDeadlineTimerElapses(t *testing.T) {
	d := NewDeadlineTimer()
	d.SetDeadline(time.Now().Add(20 * time.Millisecond))
	require.True(t, d.Wait())
}

func TestDeadlineTimerMovedEarlier(t *testing.T) {
	d := NewDeadlineTimer()
	d.SetDeadline(time.Now().Add(time.Hour))

	go func() {
		time.Sleep(5 * time.Millisecond)
		d.SetDeadline(time.Now().Add(time.Millisecond))
	}()

	require.False(t, d.Wait())
}

func TestRateLimiterPaces(t *testing.T) {
	r := NewRateLimiter(50 * time.Millisecond)
	require.True(t, r.Allow())
	require.False(t, r.Allow())
	time.Sleep(60 * time.Millisecond)
	require.True(t, r.Allow())
}
