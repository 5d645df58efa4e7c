package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Type: "completion"}))
	require.NoError(t, q.Enqueue(Job{ID: "b", Type: "completion"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	require.True(t, seen["a"])
	require.True(t, seen["b"])
}

func TestQueueRejectsDuplicateInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "user-1", Type: "completion"}))
	<-started
	err := q.Enqueue(Job{ID: "user-1", Type: "completion"})
	require.True(t, errors.Is(err, ErrDuplicateJob))
	require.Equal(t, 1, q.InFlight())

	close(release)
	require.Eventually(t, func() bool { return q.InFlight() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "user-1", Type: "completion"}))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("boom")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "retry", Type: "completion"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 && q.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "x"}))
}

func TestQueueRecoversPanicsAndObserves(t *testing.T) {
	var observed int32
	var failures int32
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		panic("bad payload")
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Observer: func(queue, jobType string, err error, _ time.Duration) {
			atomic.AddInt32(&observed, 1)
			if err != nil && queue == "test" && jobType == "completion" {
				atomic.AddInt32(&failures, 1)
			}
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "p", Type: "completion"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&observed) == 2 && q.InFlight() == 0 }, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 2, atomic.LoadInt32(&failures))
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	require.Equal(t, time.Second, q.backoff(1))
	require.Equal(t, 2*time.Second, q.backoff(2))
	require.Equal(t, 4*time.Second, q.backoff(3))
	require.Equal(t, 5*time.Second, q.backoff(4))
}
