// Package mq is the per-peer message-queue layer (spec.md §4.H, §5's flow
// control and ordering guarantees): one FIFO envelope queue per connected
// peer, token-bucket paced, draining into an injected Transport. Grounded
// on dep2p-go-dep2p's internal/discovery/dht/network_adapter.go (per-peer
// send path shape) and internal/core/connmgr (per-peer resource
// lifecycle), with the token-bucket itself grounded on
// internal/realm/gateway/bandwidth_limiter.go.
package mq

import (
	"context"
	"sync/atomic"

	"github.com/kademlia-dht/overlay/pkg/log"
	"github.com/kademlia-dht/overlay/pkg/types"
)

var logger = log.Logger("mq")

// Transport is the underlay send primitive a Queue drains into (spec.md
// §6 "Router -> underlay: mq_send(env)"). A concrete implementation lives
// outside this module's scope (internal/underlay is interface-only per
// spec.md §1's Non-goals).
type Transport interface {
	Transmit(envelope []byte) error
}

// Queue is one peer's outbound message queue: Send enqueues, a single
// background goroutine drains in FIFO order (spec.md §5, testable
// property #9: "messages enqueued on one MQ arrive at the peer in enqueue
// order"), pacing transmission through a TokenBucket.
type Queue struct {
	peer      types.PeerID
	transport Transport
	bucket    *TokenBucket
	metrics   *Metrics

	ch     chan []byte
	closed atomic.Bool
	done   chan struct{}
}

// NewQueue creates a queue for peer, backed by transport and paced by
// bucket. bufferSize bounds how many envelopes may be pending before Send
// blocks (backpressure toward the caller rather than unbounded growth).
// metrics may be nil to disable Prometheus reporting.
func NewQueue(peer types.PeerID, transport Transport, bucket *TokenBucket, bufferSize int, metrics *Metrics) *Queue {
	q := &Queue{
		peer:      peer,
		transport: transport,
		bucket:    bucket,
		metrics:   metrics,
		ch:        make(chan []byte, bufferSize),
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

// Send enqueues envelope for FIFO delivery. Returns ErrQueueClosed once
// Close has been called; never transmits out of order even under
// concurrent callers, since all sends share the single channel.
func (q *Queue) Send(envelope []byte) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- envelope:
		q.metrics.observeDepth(q.peer.String(), len(q.ch))
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Closed reports whether Close has been called, satisfying
// internal/routing.MessageQueue.
func (q *Queue) Closed() bool {
	return q.closed.Load()
}

// Close stops the drain goroutine and rejects further sends. Already
// buffered envelopes are dropped, not transmitted (spec.md §5 "connection
// teardown cancels all tasks bound to that peer's message queue").
func (q *Queue) Close() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	close(q.done)
}

func (q *Queue) run() {
	for {
		select {
		case envelope := <-q.ch:
			q.metrics.observeDepth(q.peer.String(), len(q.ch))
			q.transmit(envelope)
		case <-q.done:
			q.drain()
			return
		}
	}
}

func (q *Queue) transmit(envelope []byte) {
	if err := q.bucket.Acquire(context.Background(), int64(len(envelope))); err != nil {
		q.metrics.observeDropped(q.peer.String())
		return
	}
	q.metrics.observeTokens(q.peer.String(), q.bucket.AvailableTokens())
	if err := q.transport.Transmit(envelope); err != nil {
		logger.Debug("transmit failed", "peer", q.peer, "error", err)
		q.metrics.observeDropped(q.peer.String())
		return
	}
	q.metrics.observeSent(q.peer.String())
}

// drain discards whatever remains buffered after Close, logging the count
// (spec.md §7: cancellation drops in-flight state rather than retrying).
func (q *Queue) drain() {
	dropped := 0
	for {
		select {
		case <-q.ch:
			dropped++
		default:
			if dropped > 0 {
				logger.Debug("dropped buffered envelopes on close", "peer", q.peer, "count", dropped)
			}
			return
		}
	}
}

var _ interface {
	Send([]byte) error
	Closed() bool
} = (*Queue)(nil)
