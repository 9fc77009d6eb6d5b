package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewQueue[string]("test", func(_ context.Context, job Job[string]) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Payload)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job[string]{ID: p, Payload: p}))
	}
	q.Stop()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue[int]("retry", func(_ context.Context, job Job[int]) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job[int]{ID: "1", Payload: 1}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsWhenStopped(t *testing.T) {
	q := NewQueue[int]("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})

	assert.Error(t, q.Enqueue(Job[int]{ID: "1"}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job[int]{ID: "2"}))
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue[int]("full", func(context.Context, Job[int]) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job[int]{ID: "running"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job[int]{ID: "buffered"}))
	assert.Error(t, q.Enqueue(Job[int]{ID: "overflow"}))

	close(release)
	q.Stop()
}
