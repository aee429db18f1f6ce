package routing

import (
	"sync"
	"time"

	"github.com/kademlia-dht/overlay/pkg/types"
)

// BucketSize is B in spec.md §3 ("A bucket b[k] holds up to B (typically 8)
// peers").
const BucketSize = 8

// MessageQueue is the minimal per-peer send handle a bucket entry carries.
// The concrete implementation lives in internal/mq; routing only depends on
// this narrow interface to avoid a cross-package cycle (mirrors the
// teacher's pkg/interfaces split between discovery and transport).
type MessageQueue interface {
	Send(envelope []byte) error
	Closed() bool
}

// Entry is one neighbour table resident: a connected peer with a live
// message-queue handle, a liveness timestamp, and a hold-count expressing
// how many DHT tables still need it kept connected.
type Entry struct {
	PeerID      types.PeerID
	Hash        types.HashKey
	MQ          MessageQueue
	LastActive  time.Time
	FailedPings int
	holds       int
}

func (e *Entry) isLive(failureThreshold int) bool {
	return e.FailedPings < failureThreshold
}

// KBucket holds up to BucketSize entries sharing a bucket index, plus a
// replacement cache of candidates waiting for room.
type KBucket struct {
	mu               sync.RWMutex
	entries          []*Entry
	replacementCache []*Entry
}

func newKBucket() *KBucket {
	return &KBucket{
		entries:          make([]*Entry, 0, BucketSize),
		replacementCache: make([]*Entry, 0, BucketSize),
	}
}

// size returns the number of live entries.
func (b *KBucket) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// get finds an entry by peer id.
func (b *KBucket) get(id types.PeerID) *Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		if e.PeerID == id {
			return e
		}
	}
	return nil
}

// add inserts e, replacing the least-recently-active resident only if that
// resident has failed liveness checks (spec.md §4.D: "insert into b[k] if
// room, else replace the least-recently-active entry only if it has failed
// liveness checks"). failureThreshold is the FailedPings count considered
// dead.
func (b *KBucket) add(e *Entry, failureThreshold int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.entries {
		if existing.PeerID == e.PeerID {
			b.entries[i] = e
			return true
		}
	}

	if len(b.entries) < BucketSize {
		b.entries = append(b.entries, e)
		return true
	}

	// bucket full: find the least-recently-active resident.
	oldest := 0
	for i, existing := range b.entries {
		if existing.LastActive.Before(b.entries[oldest].LastActive) {
			oldest = i
		}
	}
	if b.entries[oldest].isLive(failureThreshold) {
		b.addToReplacementCache(e)
		return false
	}
	b.entries[oldest] = e
	return true
}

func (b *KBucket) addToReplacementCache(e *Entry) {
	for i, existing := range b.replacementCache {
		if existing.PeerID == e.PeerID {
			b.replacementCache[i] = e
			return
		}
	}
	b.replacementCache = append(b.replacementCache, e)
	if len(b.replacementCache) > BucketSize {
		b.replacementCache = b.replacementCache[1:]
	}
}

// remove deletes id from entries (or the replacement cache), promoting a
// replacement candidate into the freed slot if one is waiting. Returns true
// if an overflow candidate was promoted (a rebind occurred).
func (b *KBucket) remove(id types.PeerID) (rebound bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.PeerID != id {
			continue
		}
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
		if len(b.replacementCache) > 0 {
			next := b.replacementCache[0]
			b.replacementCache = b.replacementCache[1:]
			b.entries = append(b.entries, next)
			return true
		}
		return false
	}
	for i, e := range b.replacementCache {
		if e.PeerID == id {
			b.replacementCache = append(b.replacementCache[:i], b.replacementCache[i+1:]...)
			return false
		}
	}
	return false
}

// all returns a copy of the live entries.
func (b *KBucket) all() []*Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
