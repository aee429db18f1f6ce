package mq

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceiveGateStartsOpen(t *testing.T) {
	g := NewReceiveGate()
	assert.False(t, g.Paused())
	g.Wait() // must not block
}

func TestReceiveGatePauseBlocksUntilContinue(t *testing.T) {
	g := NewReceiveGate()
	g.Pause()
	assert.True(t, g.Paused())

	var resumed atomic.Bool
	done := make(chan struct{})
	go func() {
		g.Wait()
		resumed.Store(true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, resumed.Load())

	g.Continue()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Continue")
	}
	assert.True(t, resumed.Load())
}

func TestReceiveGateCloseReleasesWaiter(t *testing.T) {
	g := NewReceiveGate()
	g.Pause()

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	g.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Close")
	}
}
