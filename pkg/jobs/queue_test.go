package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{Type: "noop"})
	require.Error(t, err)
}

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(_ context.Context, j Job) error {
		done <- j.Type
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	accepted, err := q.Enqueue(Job{Type: "reconcile"})
	require.NoError(t, err)
	assert.True(t, accepted)

	select {
	case typ := <-done:
		assert.Equal(t, "reconcile", typ)
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueCoalescesPendingKey(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var runs int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&runs, 1)
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{BufferSize: 8})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Key: "rooms"})
	require.NoError(t, err)
	<-started

	// First job is running; one follow-up waits, the rest coalesce into it.
	first, _ := q.Enqueue(Job{Key: "rooms"})
	second, _ := q.Enqueue(Job{Key: "rooms"})
	third, _ := q.Enqueue(Job{Key: "rooms"})
	assert.True(t, first)
	assert.False(t, second)
	assert.False(t, third)

	close(release)
	<-started
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 2 }, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailures(t *testing.T) {
	var attempts int32
	q := NewQueue("test", func(context.Context, Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "flaky"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueBackoffDoublesAndCaps(t *testing.T) {
	q := NewQueue("backoff", func(context.Context, Job) error { return nil }, QueueConfig{RetryDelay: 10 * time.Second})

	assert.Equal(t, 10*time.Second, q.backoff(1))
	assert.Equal(t, 20*time.Second, q.backoff(2))
	assert.Equal(t, maxRetryDelay, q.backoff(3))
	assert.Equal(t, maxRetryDelay, q.backoff(8))
}
