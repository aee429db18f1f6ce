package validator

import (
	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// ContentAddressedValidator handles file-sharing data and index blocks:
// key = H(block_bytes), no embedded signature, exactly one legitimate
// reply per query (spec.md §4.F).
type ContentAddressedValidator struct {
	blockType types.BlockType
}

// NewContentAddressedValidator constructs the validator for a
// content-addressed block type.
func NewContentAddressedValidator(t types.BlockType) *ContentAddressedValidator {
	return &ContentAddressedValidator{blockType: t}
}

// DeriveKey hashes the raw block bytes directly.
func (v *ContentAddressedValidator) DeriveKey(blockBytes []byte) (types.HashKey, error) {
	return crypto.Hash(blockBytes), nil
}

// CheckQuery accepts any query; content-addressed lookups carry no
// selector beyond the key itself.
func (v *ContentAddressedValidator) CheckQuery(types.HashKey, []byte) error {
	return nil
}

// CheckBlock verifies the block's declared key matches H(payload).
func (v *ContentAddressedValidator) CheckBlock(b *types.Block) error {
	derived, err := v.DeriveKey(b.Payload)
	if err != nil {
		return err
	}
	if derived != b.Key {
		return ErrKeyMismatch
	}
	return nil
}

// CheckReply always yields OKLast: a content-addressed reply is either the
// one legitimate answer or invalid, never one of several.
func (v *ContentAddressedValidator) CheckReply(_ *bloom.Filter, key types.HashKey, _ []byte, reply *types.Block) ReplyResult {
	if err := v.CheckBlock(reply); err != nil {
		return ReplyInvalid
	}
	if reply.Key != key {
		return ReplyIrrelevant
	}
	return ReplyOKLast
}

// CreateGroup is unused for content-addressed types (at most one reply is
// ever legitimate) but implemented for interface completeness.
func (v *ContentAddressedValidator) CreateGroup(expectedSetSize uint64, mutator uint32) *bloom.Filter {
	return bloom.NewReplyFilter(expectedSetSize, mutator)
}
