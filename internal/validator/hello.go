package validator

import (
	"github.com/kademlia-dht/overlay/internal/hello"
	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// HelloValidator handles signed peer descriptors, key = peer_id_hash =
// H(pid) (spec.md §3), exactly one legitimate reply per query.
type HelloValidator struct{}

// NewHelloValidator constructs the HELLO block validator.
func NewHelloValidator() *HelloValidator {
	return &HelloValidator{}
}

// DeriveKey parses the binary HELLO form and hashes the embedded peer id.
func (v *HelloValidator) DeriveKey(blockBytes []byte) (types.HashKey, error) {
	d, err := hello.ParseBytes(blockBytes)
	if err != nil {
		return types.HashKey{}, err
	}
	return crypto.PeerIDHash(crypto.PublicKeyFromPeerID(d.PeerID)), nil
}

// CheckQuery accepts any query; HELLOs are looked up by peer_id_hash alone.
func (v *HelloValidator) CheckQuery(types.HashKey, []byte) error {
	return nil
}

// CheckBlock parses and verifies the descriptor (signature + expiration)
// and confirms the block's declared key matches its peer_id_hash.
func (v *HelloValidator) CheckBlock(b *types.Block) error {
	d, err := hello.ParseBytes(b.Payload)
	if err != nil {
		return err
	}
	derived := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(d.PeerID))
	if derived != b.Key {
		return ErrKeyMismatch
	}
	return nil
}

// CheckReply always yields OKLast: exactly one HELLO is legitimate per
// peer_id_hash query.
func (v *HelloValidator) CheckReply(_ *bloom.Filter, key types.HashKey, _ []byte, reply *types.Block) ReplyResult {
	if err := v.CheckBlock(reply); err != nil {
		return ReplyInvalid
	}
	if reply.Key != key {
		return ReplyIrrelevant
	}
	return ReplyOKLast
}

// CreateGroup is unused for HELLO blocks but implemented for interface
// completeness.
func (v *HelloValidator) CreateGroup(expectedSetSize uint64, mutator uint32) *bloom.Filter {
	return bloom.NewReplyFilter(expectedSetSize, mutator)
}
