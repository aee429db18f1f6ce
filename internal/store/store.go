// Package store is the local block cache: a size-capped map from key to
// blocks, secondary-indexed by type, evicted by proximity to the local
// node identity. Grounded on dep2p-go-dep2p's internal/discovery/dht
// ValueStore (map-of-record, IsExpired predicate, mutex-guarded struct),
// generalized from single-value-per-key to a vector of blocks per key and
// from TTL-on-insert to an absolute expiration carried by the block.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/log"
	"github.com/kademlia-dht/overlay/pkg/types"
)

var logger = log.Logger("store")

// entry is one key's bucket of blocks plus the proximity weight used for
// eviction ordering.
type entry struct {
	key       types.HashKey
	blocks    []*types.Block
	proximity uint32 // leading_zero_bits(key XOR local), higher = closer
}

func (e *entry) earliestExpiration() time.Time {
	earliest := e.blocks[0].Expiration
	for _, b := range e.blocks[1:] {
		if b.Expiration.Before(earliest) {
			earliest = b.Expiration
		}
	}
	return earliest
}

// Store is the size-capped, proximity-weighted local block cache described
// by SPEC_FULL.md §4.B. The in-memory index is authoritative; an optional
// Backend mirrors it for durability across restarts.
type Store struct {
	mu       sync.Mutex
	localID  types.HashKey
	capacity int
	entries  map[types.HashKey]*entry
	byType   map[types.BlockType]map[types.HashKey]struct{}
	backend  Backend

	stopSweep chan struct{}
}

// Backend is the durable mirror. It is read only at cold start to
// repopulate the in-memory index; Get never reads it. Put writes each
// inserted block to it, and eviction and sweeping delete from it,
// synchronously while the store lock is held.
type Backend interface {
	LoadAll() ([]*types.Block, error)
	Persist(b *types.Block) error
	Delete(key types.HashKey) error
	Close() error
}

// New creates an empty store bounded to capacity distinct keys, optionally
// backed by a durable mirror.
func New(localID types.HashKey, capacity int, backend Backend) (*Store, error) {
	s := &Store{
		localID:   localID,
		capacity:  capacity,
		entries:   make(map[types.HashKey]*entry),
		byType:    make(map[types.BlockType]map[types.HashKey]struct{}),
		backend:   backend,
		stopSweep: make(chan struct{}),
	}
	if backend != nil {
		blocks, err := backend.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			if b.IsExpired() {
				continue
			}
			s.insertLocked(b, false)
		}
	}
	return s, nil
}

// Put inserts a block. If a new key takes the store over capacity, the
// farthest entry is evicted, which may be the new block's own key. Put
// always succeeds.
func (s *Store) Put(b *types.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(b, true)
}

func (s *Store) insertLocked(b *types.Block, persist bool) {
	e, exists := s.entries[b.Key]
	if !exists {
		e = &entry{key: b.Key, proximity: crypto.LeadingZeroBits(crypto.XOR(b.Key, s.localID))}
		s.entries[b.Key] = e
		if s.byType[b.Type] == nil {
			s.byType[b.Type] = make(map[types.HashKey]struct{})
		}
		s.byType[b.Type][b.Key] = struct{}{}
	}
	e.blocks = append(e.blocks, b)
	if len(s.entries) > s.capacity {
		s.evictFarthestLocked()
		if _, kept := s.entries[b.Key]; !kept {
			return
		}
	}

	if persist && s.backend != nil {
		if err := s.backend.Persist(b); err != nil {
			logger.Warn("persist block failed", "key", b.Key, "error", err)
		}
	}
}

// evictFarthestLocked removes the entry with the lowest proximity value
// (farthest from local_id), breaking ties by earliest expiration
// (spec.md §4.B). Caller holds s.mu.
func (s *Store) evictFarthestLocked() {
	var victim *entry
	for _, e := range s.entries {
		if victim == nil ||
			e.proximity < victim.proximity ||
			(e.proximity == victim.proximity && e.earliestExpiration().Before(victim.earliestExpiration())) {
			victim = e
		}
	}
	if victim == nil {
		return
	}
	s.removeEntryLocked(victim)
}

func (s *Store) removeEntryLocked(e *entry) {
	delete(s.entries, e.key)
	for _, b := range e.blocks {
		if idx := s.byType[b.Type]; idx != nil {
			delete(idx, e.key)
		}
	}
	if s.backend != nil {
		if err := s.backend.Delete(e.key); err != nil {
			logger.Warn("delete evicted block failed", "key", e.key, "error", err)
		}
	}
}

// Get returns the non-expired blocks stored under key matching blockType
// (or any type if blockType is types.BlockTypeAny), skipping any block
// whose content hash tests positive in replyBloom (nil disables filtering).
func (s *Store) Get(key types.HashKey, blockType types.BlockType, replyBloom *bloom.Filter) []*types.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	var out []*types.Block
	for _, b := range e.blocks {
		if b.IsExpired() {
			continue
		}
		if blockType != types.BlockTypeAny && b.Type != blockType {
			continue
		}
		if replyBloom != nil {
			ch := b.ContentHash()
			if replyBloom.Contains(ch[:]) {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// GetClosest returns up to n stored entries' newest block whose key is
// closest in XOR distance to target, restricted to blockType unless it is
// types.BlockTypeAny.
func (s *Store) GetClosest(target types.HashKey, blockType types.BlockType, n int) []*types.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		key types.HashKey
		b   *types.Block
	}
	var candidates []candidate
	for key, e := range s.entries {
		var best *types.Block
		for _, b := range e.blocks {
			if b.IsExpired() {
				continue
			}
			if blockType != types.BlockTypeAny && b.Type != blockType {
				continue
			}
			if best == nil || b.Expiration.After(best.Expiration) {
				best = b
			}
		}
		if best != nil {
			candidates = append(candidates, candidate{key: key, b: best})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return crypto.Less(candidates[i].key, candidates[j].key, target)
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]*types.Block, len(candidates))
	for i, c := range candidates {
		out[i] = c.b
	}
	return out
}

// Size returns the number of distinct keys currently stored.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// SweepExpired drops blocks past expiration, removing any entry left with
// no live blocks. Intended to run on a time.Ticker in a background
// goroutine, mirroring the teacher's RemoveExpiredNodes sweep.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, e := range s.entries {
		live := e.blocks[:0]
		for _, b := range e.blocks {
			if b.IsExpired() {
				removed++
				continue
			}
			live = append(live, b)
		}
		if len(live) == 0 {
			s.removeEntryLocked(e)
			continue
		}
		e.blocks = live
	}
	return removed
}

// RunSweeper starts a background goroutine that calls SweepExpired every
// interval until Stop is called.
func (s *Store) RunSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.SweepExpired(); n > 0 {
					logger.Debug("swept expired blocks", "count", n)
				}
			case <-s.stopSweep:
				return
			}
		}
	}()
}

// Stop halts the background sweeper, if running.
func (s *Store) Stop() {
	close(s.stopSweep)
}
