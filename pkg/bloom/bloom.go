// Package bloom adapts github.com/holiman/bloomfilter/v2 to the two bloom
// filter roles this overlay needs: the peer-bloom used for PUT/GET loop
// avoidance, and the reply-bloom used for per-request duplicate suppression
// (the "block group" of spec.md §3).
package bloom

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/holiman/bloomfilter/v2"
)

// PeerBloomK is the fixed hash-function count for peer-blooms, per spec.md
// §3 ("Peer-bloom: ... K=16 hash functions").
const PeerBloomK = 16

// peerBloomM is sized generously for the expected number of peers visited
// along one routed request; false positives only cause an early stop of
// forwarding, never incorrect delivery.
const peerBloomM = 4096

// Filter is a probabilistic set of byte-string members, tested and
// populated via H(member) fed through the underlying bit array.
type Filter struct {
	f *bloomfilter.Filter
}

// NewPeerFilter creates an empty peer-bloom with the fixed K=16 parameter.
func NewPeerFilter() *Filter {
	f, err := bloomfilter.New(peerBloomM, PeerBloomK)
	if err != nil {
		// m and k are compile-time constants here; New only fails on m==0
		// or k==0, so this is unreachable in practice.
		panic(err)
	}
	return &Filter{f: f}
}

// NewReplyFilter creates an empty reply-bloom sized for the given expected
// set size and optionally re-randomized by a mutator (gnunet-go's
// HelloResultFilter mutator convention, carried forward per SPEC_FULL.md
// §5 "Result-filter mutator").
func NewReplyFilter(expectedSetSize uint64, mutator uint32) *Filter {
	if expectedSetSize == 0 {
		expectedSetSize = 128
	}
	f, err := bloomfilter.NewOptimal(expectedSetSize, 0.01)
	if err != nil {
		panic(err)
	}
	bf := &Filter{f: f}
	if mutator != 0 {
		bf.Add(mutatorSeed(mutator))
	}
	return bf
}

func mutatorSeed(mutator uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, mutator)
	return b
}

// Add inserts member into the filter.
func (bf *Filter) Add(member []byte) {
	bf.f.Add(hash64(member))
}

// Contains tests membership; a true result may be a false positive, a false
// result is always accurate.
func (bf *Filter) Contains(member []byte) bool {
	return bf.f.Contains(hash64(member))
}

// TestAndAdd tests membership and then adds the member, matching the
// test-then-insert idiom used by check_reply (spec.md §4.F).
func (bf *Filter) TestAndAdd(member []byte) (alreadyPresent bool) {
	h := hash64(member)
	alreadyPresent = bf.f.Contains(h)
	bf.f.Add(h)
	return alreadyPresent
}

// Clone returns a new, empty filter with the same bit-array size and hash
// count as bf. The members of bf are not copied into it.
func (bf *Filter) Clone() *Filter {
	m, k := bf.f.M(), bf.f.K()
	nf, err := bloomfilter.New(m, k)
	if err != nil {
		panic(err)
	}
	clone := &Filter{f: nf}
	// bloomfilter.Filter exposes no bit iterator; re-add is not possible
	// without tracking members, so the clone starts with no members.
	return clone
}

// MarshalBinary serializes the filter's parameters and bit array for wire
// transmission (the PUT/GET messages' "peer_bloom: variable" field).
func (bf *Filter) MarshalBinary() ([]byte, error) {
	return bf.f.MarshalJSON()
}

// UnmarshalFilter reconstructs a Filter previously serialized with
// MarshalBinary.
func UnmarshalFilter(data []byte) (*Filter, error) {
	f, err := bloomfilter.NewFromJSON(data)
	if err != nil {
		return nil, err
	}
	return &Filter{f: f}, nil
}

func hash64(b []byte) hash.Hash64 {
	h := fnv.New64a()
	h.Write(b)
	return &fixedHash64{sum: h.Sum64()}
}

// fixedHash64 adapts a precomputed 64-bit digest to the hash.Hash64
// interface holiman/bloomfilter/v2 expects as its Add/Contains argument.
type fixedHash64 struct {
	sum uint64
}

func (h *fixedHash64) Sum64() uint64 { return h.sum }
func (h *fixedHash64) Write(p []byte) (int, error) {
	return len(p), nil
}
func (h *fixedHash64) Sum(b []byte) []byte { return b }
func (h *fixedHash64) Reset()              {}
func (h *fixedHash64) Size() int           { return 8 }
func (h *fixedHash64) BlockSize() int      { return 8 }
