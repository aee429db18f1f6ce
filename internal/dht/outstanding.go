package dht

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// localRequester is a local client's interest in a GET's replies.
type localRequester struct {
	replyCh chan *types.Block
}

// outstandingGet is the per-key routing state spec.md §4.E point 3 asks the
// router to maintain: the reply-bloom group used for duplicate suppression
// across every reply seen for this key, plus the local client channels
// waiting on a delivery.
type outstandingGet struct {
	mu       sync.Mutex
	group    *bloom.Filter
	local    []localRequester
	deadline time.Time
}

// outstandingTable is the bounded table of in-flight GET state, sized via
// hashicorp/golang-lru/v2 (teacher's go.mod lists it, unused in teacher
// code; wired here for its intended purpose) and reaped by deadline.
type outstandingTable struct {
	mu    sync.Mutex
	cache *lru.Cache[types.HashKey, *outstandingGet]
}

func newOutstandingTable(capacity int) (*outstandingTable, error) {
	c, err := lru.New[types.HashKey, *outstandingGet](capacity)
	if err != nil {
		return nil, err
	}
	return &outstandingTable{cache: c}, nil
}

func (t *outstandingTable) getOrCreate(key types.HashKey, expectedSetSize uint64, mutator uint32, ttl time.Duration) *outstandingGet {
	t.mu.Lock()
	defer t.mu.Unlock()
	if og, ok := t.cache.Get(key); ok {
		return og
	}
	og := &outstandingGet{
		group:    bloom.NewReplyFilter(expectedSetSize, mutator),
		deadline: time.Now().Add(ttl),
	}
	t.cache.Add(key, og)
	return og
}

func (t *outstandingTable) get(key types.HashKey) (*outstandingGet, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Get(key)
}

func (t *outstandingTable) remove(key types.HashKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(key)
}

// reapExpired drops outstanding GET state past its deadline (spec.md §4.E
// "Timeouts: Outstanding GET state is reaped after its deadline").
func (t *outstandingTable) reapExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	now := time.Now()
	for _, key := range t.cache.Keys() {
		og, ok := t.cache.Peek(key)
		if !ok {
			continue
		}
		if now.After(og.deadline) {
			t.cache.Remove(key)
			removed++
		}
	}
	return removed
}
