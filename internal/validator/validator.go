// Package validator is the per-block-type dispatch table: one Validator
// implementation per types.BlockType, selected by a Registry rather than a
// type switch, matching the dependency-inversion shape of
// dep2p-go-dep2p's internal/discovery/dht/validator.go
// (PeerRecordValidator interface + DefaultPeerRecordValidator). Block-type
// semantics (content-addressed vs. signed) are grounded on other_examples'
// gnunet-go blocks/hello.go HelloBlockHandler and msg_dht_p2p.go result
// filter.
package validator

import (
	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// ReplyResult is the outcome of CheckReply, mirroring spec.md §4.F's
// six-way check_reply result set.
type ReplyResult int

const (
	// ReplyOKLast indicates a legitimate reply after which no further
	// replies for this query are expected (the content-addressed case).
	ReplyOKLast ReplyResult = iota
	// ReplyOKMore indicates a legitimate reply with more expected.
	ReplyOKMore
	// ReplyDuplicate indicates the reply was already seen (bloom hit).
	ReplyDuplicate
	// ReplyIrrelevant indicates the reply does not match the query.
	ReplyIrrelevant
	// ReplyInvalid indicates the reply failed structural or signature
	// validation.
	ReplyInvalid
	// ReplyTypeUnsupported indicates no validator is registered for the
	// block's type.
	ReplyTypeUnsupported
)

func (r ReplyResult) String() string {
	switch r {
	case ReplyOKLast:
		return "ok_last"
	case ReplyOKMore:
		return "ok_more"
	case ReplyDuplicate:
		return "duplicate"
	case ReplyIrrelevant:
		return "irrelevant"
	case ReplyInvalid:
		return "invalid"
	case ReplyTypeUnsupported:
		return "type_unsupported"
	default:
		return "unknown"
	}
}

// Validator is the per-type plugin interface (spec.md §4.F).
type Validator interface {
	// DeriveKey computes the HashKey a block of this type must be stored
	// under, from the raw block bytes alone.
	DeriveKey(blockBytes []byte) (types.HashKey, error)
	// CheckQuery validates an incoming query's extra selector bytes before
	// a lookup is performed.
	CheckQuery(key types.HashKey, xquery []byte) error
	// CheckBlock validates a block's structure and, where applicable, its
	// signature before accepting it into local storage.
	CheckBlock(b *types.Block) error
	// CheckReply validates and deduplicates a candidate reply against the
	// query's reply-bloom group.
	CheckReply(group *bloom.Filter, key types.HashKey, xquery []byte, reply *types.Block) ReplyResult
	// CreateGroup allocates a fresh reply-bloom group for a new query,
	// sized by expectedSetSize and optionally mutator-seeded.
	CreateGroup(expectedSetSize uint64, mutator uint32) *bloom.Filter
}

// Registry is the sealed dispatch table from BlockType to Validator.
// "Sealed" per spec.md §9's redesign note: types are a fixed compile-time
// enum, never dynamically loaded.
type Registry struct {
	validators map[types.BlockType]Validator
}

// NewRegistry builds the registry with the standard validator set wired
// in.
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[types.BlockType]Validator)}
	r.Register(types.BlockTypeFSData, NewContentAddressedValidator(types.BlockTypeFSData))
	r.Register(types.BlockTypeFSIndex, NewContentAddressedValidator(types.BlockTypeFSIndex))
	r.Register(types.BlockTypeUserBlock, NewSignedZoneValidator(types.BlockTypeUserBlock))
	r.Register(types.BlockTypeGNSRecord, NewSignedZoneValidator(types.BlockTypeGNSRecord))
	r.Register(types.BlockTypeHello, NewHelloValidator())
	return r
}

// Register installs or replaces the validator for a type.
func (r *Registry) Register(t types.BlockType, v Validator) {
	r.validators[t] = v
}

// Get returns the validator for t, or (nil, false) if none is registered —
// the TYPE_UNSUPPORTED case of spec.md §7.
func (r *Registry) Get(t types.BlockType) (Validator, bool) {
	v, ok := r.validators[t]
	return v, ok
}
