package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CryptoLens_MarketData/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(interval, timeout time.Duration) *Queue {
	return newQueue(QueueOptions{Name: "test", MinInterval: interval, DispatchTimeout: timeout}, time.Now)
}

// startRecorder collects operation start times
type startRecorder struct {
	mu     sync.Mutex
	starts []time.Time
	order  []int
}

func (r *startRecorder) op(id int, err error) Operation {
	return func(ctx context.Context) error {
		r.mu.Lock()
		r.starts = append(r.starts, time.Now())
		r.order = append(r.order, id)
		r.mu.Unlock()
		return err
	}
}

func (r *startRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func TestQueue_SpacesDispatches(t *testing.T) {
	q := newTestQueue(50*time.Millisecond, 0)
	defer q.Close()
	rec := &startRecorder{}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, q.Schedule(context.Background(), rec.op(id, nil)))
		}(i)
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	require.Len(t, rec.starts, 3)
	for i := 1; i < len(rec.starts); i++ {
		gap := rec.starts[i].Sub(rec.starts[i-1])
		assert.GreaterOrEqual(t, gap, 45*time.Millisecond, "gap %d too short", i)
	}
}

func TestQueue_FirstDispatchIsImmediate(t *testing.T) {
	q := newTestQueue(time.Hour, 0)
	defer q.Close()

	start := time.Now()
	require.NoError(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestQueue_PreservesFIFOOrder(t *testing.T) {
	q := newTestQueue(100*time.Millisecond, 0)
	defer q.Close()
	rec := &startRecorder{}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = q.Schedule(context.Background(), rec.op(id, nil))
		}(i)
		// job 0 dispatches at once, the rest wait in line
		want := i
		if i == 0 {
			require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
			continue
		}
		require.Eventually(t, func() bool { return q.Len() == want }, time.Second, time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, rec.order)
}

func TestQueue_FailureDoesNotBlockQueue(t *testing.T) {
	q := newTestQueue(10*time.Millisecond, 0)
	defer q.Close()

	boom := errors.New("boom")
	results := make([]error, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var err error
			if id == 1 {
				err = boom
			}
			results[id] = q.Schedule(context.Background(), func(ctx context.Context) error { return err })
		}(i)
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	assert.NoError(t, results[0])
	assert.ErrorIs(t, results[1], boom)
	assert.NoError(t, results[2])
}

func TestQueue_FailureStillAdvancesLastDispatch(t *testing.T) {
	q := newTestQueue(60*time.Millisecond, 0)
	defer q.Close()

	_ = q.Schedule(context.Background(), func(ctx context.Context) error { return errors.New("fail") })

	start := time.Now()
	require.NoError(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueue_CancelledJobIsDroppedBeforeDispatch(t *testing.T) {
	q := newTestQueue(80*time.Millisecond, 0)
	defer q.Close()

	// occupy the first slot so the next jobs have to wait
	require.NoError(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	cancelled := make(chan error, 1)
	go func() {
		cancelled <- q.Schedule(ctx, func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-cancelled, context.Canceled)

	require.NoError(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }))
	select {
	case <-ran:
		t.Fatal("cancelled operation must not run")
	default:
	}
}

func TestQueue_DispatchTimeout(t *testing.T) {
	q := newTestQueue(0, 30*time.Millisecond)
	defer q.Close()

	release := make(chan struct{})
	defer close(release)

	err := q.Schedule(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, models.ErrDispatchTimeout)

	// the stuck operation did not wedge the queue
	done := make(chan error, 1)
	go func() {
		done <- q.Schedule(context.Background(), func(ctx context.Context) error { return nil })
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("queue stalled after dispatch timeout")
	}
}

func TestQueue_RecoversPanics(t *testing.T) {
	q := newTestQueue(0, time.Second)
	defer q.Close()

	err := q.Schedule(context.Background(), func(ctx context.Context) error { panic("bad op") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad op")

	assert.NoError(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestQueue_Close(t *testing.T) {
	q := newTestQueue(time.Hour, 0)

	require.NoError(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }))

	waiting := make(chan error, 1)
	go func() {
		waiting <- q.Schedule(context.Background(), func(ctx context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, q.Close())
	assert.ErrorIs(t, <-waiting, models.ErrLimiterClosed)
	assert.ErrorIs(t, q.Schedule(context.Background(), func(ctx context.Context) error { return nil }), models.ErrLimiterClosed)
	assert.Equal(t, 0, q.Len())
	assert.NoError(t, q.Close())
}

func TestSchedule_Generic(t *testing.T) {
	q := NewQueue(QueueOptions{MinInterval: time.Millisecond})
	defer q.Close()

	got, err := Schedule(context.Background(), q, func(ctx context.Context) (string, error) {
		return "bitcoin", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", got)

	got, err = Schedule(context.Background(), q, func(ctx context.Context) (string, error) {
		return "partial", errors.New("nope")
	})
	assert.EqualError(t, err, "nope")
	assert.Empty(t, got)
}
