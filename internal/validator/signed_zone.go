package validator

import (
	"encoding/binary"

	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// SignedZoneValidator handles user-blocks and GNS namerecord blocks: both
// are a zone public key plus label binding a signed record set, key =
// H(zone_pub || label) (spec.md §4.G's derive_block_key). check_block
// verifies the embedded EdDSA signature; check_reply deduplicates via the
// group bloom filter (spec.md §4.F).
type SignedZoneValidator struct {
	blockType types.BlockType
}

// NewSignedZoneValidator constructs the validator for user-block or
// GNS-record types.
func NewSignedZoneValidator(t types.BlockType) *SignedZoneValidator {
	return &SignedZoneValidator{blockType: t}
}

// wire layout: zonePub(32B) | signature(64B) | labelLen(2B BE) | label | recordData

const signedZoneHeaderSize = types.Ed25519PublicKeySize + types.Ed25519SignatureSize + 2

// EncodeSignedZoneBlock builds the wire bytes for a signed zone block,
// signing (label || recordData) under SigPurposeUserBlock. Exported for use
// by the zone-master publisher.
func EncodeSignedZoneBlock(priv crypto.PrivateKey, label string, recordData []byte) ([]byte, error) {
	payload := append([]byte(label), recordData...)
	sig, err := crypto.Sign(priv, types.SigPurposeUserBlock, payload)
	if err != nil {
		return nil, err
	}
	pub := priv.Public()

	out := make([]byte, 0, signedZoneHeaderSize+len(payload))
	out = append(out, pub.Bytes()...)
	out = append(out, sig.Bytes()...)
	labelLen := make([]byte, 2)
	binary.BigEndian.PutUint16(labelLen, uint16(len(label)))
	out = append(out, labelLen...)
	out = append(out, label...)
	out = append(out, recordData...)
	return out, nil
}

func parseSignedZoneBlock(blockBytes []byte) (pub crypto.PublicKey, sig types.Signature, label string, recordData []byte, err error) {
	if len(blockBytes) < signedZoneHeaderSize {
		err = ErrMalformedBlock
		return
	}
	pubBytes := blockBytes[0:types.Ed25519PublicKeySize]
	off := types.Ed25519PublicKeySize
	sigBytes := blockBytes[off : off+types.Ed25519SignatureSize]
	off += types.Ed25519SignatureSize
	labelLen := int(binary.BigEndian.Uint16(blockBytes[off : off+2]))
	off += 2
	if len(blockBytes) < off+labelLen {
		err = ErrMalformedBlock
		return
	}

	var pid types.PeerID
	copy(pid[:], pubBytes)
	pub = crypto.PublicKeyFromPeerID(pid)

	sig, sigErr := types.SignatureFromBytes(sigBytes)
	if sigErr != nil {
		err = ErrMalformedBlock
		return
	}

	label = string(blockBytes[off : off+labelLen])
	recordData = blockBytes[off+labelLen:]
	return pub, sig, label, recordData, nil
}

// DeriveKey parses the zone public key and label out of the wire bytes and
// computes H(zone_pub || label).
func (v *SignedZoneValidator) DeriveKey(blockBytes []byte) (types.HashKey, error) {
	pub, _, label, _, err := parseSignedZoneBlock(blockBytes)
	if err != nil {
		return types.HashKey{}, err
	}
	return crypto.DeriveBlockKey(pub, label), nil
}

// CheckQuery accepts any query; zone blocks are looked up by key alone.
func (v *SignedZoneValidator) CheckQuery(types.HashKey, []byte) error {
	return nil
}

// CheckBlock reconstructs the signed payload and verifies the embedded
// EdDSA signature.
func (v *SignedZoneValidator) CheckBlock(b *types.Block) error {
	pub, sig, label, recordData, err := parseSignedZoneBlock(b.Payload)
	if err != nil {
		return err
	}
	payload := append([]byte(label), recordData...)
	if err := crypto.Verify(pub, types.SigPurposeUserBlock, payload, sig); err != nil {
		return ErrInvalidSignature
	}
	if derived := crypto.DeriveBlockKey(pub, label); derived != b.Key {
		return ErrKeyMismatch
	}
	return nil
}

// CheckReply verifies the reply, then tests-and-inserts H(reply_bytes) into
// the query's reply-bloom group, returning Duplicate on a repeat.
func (v *SignedZoneValidator) CheckReply(group *bloom.Filter, key types.HashKey, _ []byte, reply *types.Block) ReplyResult {
	if err := v.CheckBlock(reply); err != nil {
		return ReplyInvalid
	}
	if reply.Key != key {
		return ReplyIrrelevant
	}
	if group != nil {
		ch := reply.ContentHash()
		if group.TestAndAdd(ch[:]) {
			return ReplyDuplicate
		}
	}
	return ReplyOKMore
}

// CreateGroup allocates the bloom-filter group used for this query's
// duplicate suppression.
func (v *SignedZoneValidator) CreateGroup(expectedSetSize uint64, mutator uint32) *bloom.Filter {
	return bloom.NewReplyFilter(expectedSetSize, mutator)
}
