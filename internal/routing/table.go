package routing

import (
	"sort"
	"sync"
	"time"

	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/log"
	"github.com/kademlia-dht/overlay/pkg/types"
)

var logger = log.Logger("routing")

// FailureThreshold is the number of consecutive failed liveness checks
// ("pings") before a resident may be evicted in favor of a replacement
// candidate.
const FailureThreshold = 3

// Table is the local node's Kademlia neighbour table: types.HashKeySize*8
// buckets indexed by leading-zero-bit count between the local identity hash
// and a candidate's identity hash.
type Table struct {
	localID   types.PeerID
	localHash types.HashKey
	buckets   []*KBucket

	mu    sync.Mutex
	holds map[string]int // peer id hex -> hold count, across all DHT tables
}

// NewTable creates a neighbour table for the local peer.
func NewTable(localID types.PeerID) *Table {
	localHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(localID))
	t := &Table{
		localID:   localID,
		localHash: localHash,
		buckets:   make([]*KBucket, types.HashKeySize*8),
		holds:     make(map[string]int),
	}
	for i := range t.buckets {
		t.buckets[i] = newKBucket()
	}
	return t
}

func (t *Table) bucketIndex(peerHash types.HashKey) int {
	idx := int(crypto.LeadingZeroBits(crypto.XOR(t.localHash, peerHash)))
	if idx >= len(t.buckets) {
		idx = len(t.buckets) - 1
	}
	return idx
}

// PeerConnected inserts a newly-connected peer into its bucket, per spec.md
// §4.D: "compute k = leading_zero_bits(H(pid) XOR local_id_hash); insert
// into b[k] if room, else replace the least-recently-active entry only if
// it has failed liveness checks."
func (t *Table) PeerConnected(id types.PeerID, mq MessageQueue) bool {
	if id == t.localID {
		return false
	}
	peerHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(id))
	idx := t.bucketIndex(peerHash)
	entry := &Entry{
		PeerID:     id,
		Hash:       peerHash,
		MQ:         mq,
		LastActive: time.Now(),
	}
	ok := t.buckets[idx].add(entry, FailureThreshold)
	if !ok {
		logger.Debug("bucket full, candidate queued in replacement cache", "peer", id.String(), "bucket", idx)
	}
	return ok
}

// PeerDisconnected removes a peer and triggers a rebind from the bucket's
// overflow list if a replacement candidate was waiting.
func (t *Table) PeerDisconnected(id types.PeerID) {
	if id == t.localID {
		return
	}
	peerHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(id))
	idx := t.bucketIndex(peerHash)
	if rebound := t.buckets[idx].remove(id); rebound {
		logger.Debug("rebound replacement candidate after disconnect", "bucket", idx)
	}
}

// MarkFailedPing increments a resident's failure counter, the input to the
// liveness-gated replace rule.
func (t *Table) MarkFailedPing(id types.PeerID) {
	peerHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(id))
	idx := t.bucketIndex(peerHash)
	if e := t.buckets[idx].get(id); e != nil {
		e.FailedPings++
	}
}

// MarkActive resets a resident's failure counter and liveness timestamp on
// successful traffic.
func (t *Table) MarkActive(id types.PeerID) {
	peerHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(id))
	idx := t.bucketIndex(peerHash)
	if e := t.buckets[idx].get(id); e != nil {
		e.FailedPings = 0
		e.LastActive = time.Now()
	}
}

// allEntries collects every live entry across all buckets.
func (t *Table) allEntries() []*Entry {
	var all []*Entry
	for _, b := range t.buckets {
		all = append(all, b.all()...)
	}
	return all
}

// ClosestPeers returns up to count peers ordered by ascending XOR distance
// to target, skipping any peer whose id tests positive in excluded.
// Ties are broken by lexicographically smaller peer hash (spec.md §4.E
// "Tie-break rule").
func (t *Table) ClosestPeers(target types.HashKey, count int, excluded *bloom.Filter) []*Entry {
	all := t.allEntries()
	candidates := make([]*Entry, 0, len(all))
	for _, e := range all {
		if excluded != nil && excluded.Contains(e.PeerID[:]) {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.Slice(candidates, func(i, j int) bool {
		di := crypto.XOR(candidates[i].Hash, target)
		dj := crypto.XOR(candidates[j].Hash, target)
		for k := range di {
			if di[k] != dj[k] {
				return di[k] < dj[k]
			}
		}
		return candidates[i].Hash.Less(candidates[j].Hash)
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

// AmClosest reports whether no connected peer not excluded by the bloom
// filter is closer to target than the local identity, per spec.md §4.D.
func (t *Table) AmClosest(target types.HashKey, excluded *bloom.Filter) bool {
	for _, e := range t.allEntries() {
		if excluded != nil && excluded.Contains(e.PeerID[:]) {
			continue
		}
		if crypto.Less(e.Hash, t.localHash, target) {
			return false
		}
	}
	return true
}

// Hold registers one more interest in keeping peer id connected; the
// underlay is asked to preserve connectivity while the peer's aggregate
// count is positive (spec.md §4.D "Peer hold counts").
func (t *Table) Hold(id types.PeerID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := id.String()
	t.holds[key]++
	return t.holds[key]
}

// Drop releases one hold previously registered via Hold.
func (t *Table) Drop(id types.PeerID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := id.String()
	if t.holds[key] > 0 {
		t.holds[key]--
	}
	count := t.holds[key]
	if count == 0 {
		delete(t.holds, key)
	}
	return count
}

// HoldCount reports the current aggregate hold count for a peer.
func (t *Table) HoldCount(id types.PeerID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.holds[id.String()]
}

// Size returns the total number of connected peers across all buckets.
func (t *Table) Size() int {
	total := 0
	for _, b := range t.buckets {
		total += b.size()
	}
	return total
}

// Get returns the live entry for id, or nil.
func (t *Table) Get(id types.PeerID) *Entry {
	peerHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(id))
	idx := t.bucketIndex(peerHash)
	return t.buckets[idx].get(id)
}
