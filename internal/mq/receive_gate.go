package mq

import "sync"

// ReceiveGate implements the inbound half of flow control (spec.md §5:
// a handler may ask the scheduler to withhold further deliveries from a
// peer until it explicitly calls receive_continue once it has drained
// its own backlog). Grounded on the suspend/resume shape of dep2p-go-dep2p's
// connmgr peer-state gating, reworked here as a condition variable rather
// than a channel since callers need a synchronous "is delivery currently
// permitted" check as well as a blocking wait.
type ReceiveGate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	closed bool
}

// NewReceiveGate returns a gate that starts open (delivery permitted).
func NewReceiveGate() *ReceiveGate {
	g := &ReceiveGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Pause withholds further deliveries until Continue is called. Idempotent.
func (g *ReceiveGate) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

// Continue resumes delivery, releasing any goroutine blocked in Wait.
// Corresponds to the receive_continue primitive.
func (g *ReceiveGate) Continue() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Wait blocks the calling delivery goroutine while the gate is paused.
// Returns immediately if the gate is closed, so a shutdown never deadlocks
// a paused consumer.
func (g *ReceiveGate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused && !g.closed {
		g.cond.Wait()
	}
}

// Paused reports whether delivery is currently withheld.
func (g *ReceiveGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Close releases any waiter permanently, used on connection teardown.
func (g *ReceiveGate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}
