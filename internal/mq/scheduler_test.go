package mq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAddNowRuns(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	var ran atomic.Bool
	task := s.AddNow(func(ctx context.Context) { ran.Store(true) })

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not complete")
	}
	assert.True(t, ran.Load())
}

func TestSchedulerAddDelayedFiresAfterDelay(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	start := time.Now()
	var fired atomic.Int64
	task := s.AddDelayed(50*time.Millisecond, func(ctx context.Context) {
		fired.Store(time.Since(start).Milliseconds())
	})

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("delayed task did not complete")
	}
	assert.GreaterOrEqual(t, fired.Load(), int64(40))
}

func TestSchedulerCancelPreventsDelayedTaskFromRunning(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	var ran atomic.Bool
	task := s.AddDelayed(100*time.Millisecond, func(ctx context.Context) { ran.Store(true) })
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled task never closed done channel")
	}
	assert.False(t, ran.Load())
}

func TestSchedulerStopCancelsOutstandingTasks(t *testing.T) {
	s := NewScheduler(context.Background())

	started := make(chan struct{})
	var sawCancellation atomic.Bool
	s.AddNow(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancellation.Store(true)
	})

	<-started
	s.Stop()
	require.True(t, sawCancellation.Load())
}
