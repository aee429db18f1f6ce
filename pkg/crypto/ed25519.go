// Package crypto wraps the overlay's cryptographic primitives: EdDSA
// sign/verify with domain-separated purpose tags, SHA-512 hashing, the XOR
// metric over 512-bit keys, and user-block key derivation.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"io"

	"github.com/kademlia-dht/overlay/pkg/types"
)

// PrivateKey is a long-term Ed25519 signing key. The public half is the
// node's PeerID.
type PrivateKey struct {
	raw ed25519.PrivateKey
}

// PublicKey is a long-term Ed25519 verification key.
type PublicKey struct {
	raw ed25519.PublicKey
}

// GenerateIdentity creates a fresh Ed25519 keypair, optionally seeded from a
// caller-supplied random source (pass nil to use crypto/rand).
func GenerateIdentity(src io.Reader) (PrivateKey, PublicKey, error) {
	if src == nil {
		src = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(src)
	if err != nil {
		return PrivateKey{}, PublicKey{}, err
	}
	return PrivateKey{raw: priv}, PublicKey{raw: pub}, nil
}

// PrivateKeyFromSeed derives the full private key from a 32-byte seed, the
// form persisted to the local private key file.
func PrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, ErrInvalidKeySize
	}
	return PrivateKey{raw: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed suitable for persisting to the private key
// file (spec.md §6: "local private key file (32 bytes, USER_READ permission)").
func (k PrivateKey) Seed() []byte {
	return k.raw.Seed()
}

// Public derives the corresponding PublicKey.
func (k PrivateKey) Public() PublicKey {
	return PublicKey{raw: k.raw.Public().(ed25519.PublicKey)}
}

// PeerID returns the PublicKey encoded as a PeerID.
func (k PublicKey) PeerID() types.PeerID {
	var id types.PeerID
	copy(id[:], k.raw)
	return id
}

// PublicKeyFromPeerID reconstructs a verification key from a PeerID.
func PublicKeyFromPeerID(id types.PeerID) PublicKey {
	raw := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(raw, id[:])
	return PublicKey{raw: raw}
}

// Bytes returns a fresh copy of the raw public key bytes.
func (k PublicKey) Bytes() []byte {
	b := make([]byte, len(k.raw))
	copy(b, k.raw)
	return b
}

// Equals does a constant-time comparison of two public keys.
func (k PublicKey) Equals(o PublicKey) bool {
	return subtle.ConstantTimeCompare(k.raw, o.raw) == 1
}

// Sign produces a domain-separated signature: the wire payload actually
// signed is purpose(4B big-endian) || size(4B big-endian) || payload, where
// size is len(payload). Verify must be given the identical purpose to
// validate.
func Sign(priv PrivateKey, purpose types.SigPurpose, payload []byte) (types.Signature, error) {
	signed := signedData(purpose, payload)
	sig := ed25519.Sign(priv.raw, signed)
	return types.SignatureFromBytes(sig)
}

// Verify checks a signature against the expected purpose tag and payload.
// A verifier that does not match the expected tag always fails, preventing
// cross-purpose signature replay.
func Verify(pub PublicKey, purpose types.SigPurpose, payload []byte, sig types.Signature) error {
	signed := signedData(purpose, payload)
	if !ed25519.Verify(pub.raw, signed, sig.Bytes()) {
		return ErrInvalidSignature
	}
	return nil
}

func signedData(purpose types.SigPurpose, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(purpose))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf
}

// Hash returns the SHA-512 digest of b as a HashKey, the namespace for all
// DHT keys.
func Hash(b []byte) types.HashKey {
	return sha512.Sum512(b)
}

// PeerIDHash is the Kademlia coordinate derived from a peer identity:
// SHA-512 of the raw Ed25519 public key (spec.md §3, "peer_id_hash").
func PeerIDHash(pub PublicKey) types.HashKey {
	return Hash(pub.Bytes())
}

// DeriveBlockKey computes the DHT key for a user-block: H(verification_key),
// where verification_key is derived from the owning zone and label.
func DeriveBlockKey(zonePub PublicKey, label string) types.HashKey {
	buf := append(zonePub.Bytes(), []byte(label)...)
	return Hash(buf)
}

// XOR computes the bitwise XOR distance between two 512-bit keys.
func XOR(a, b types.HashKey) types.HashKey {
	var out types.HashKey
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// LeadingZeroBits counts the number of leading zero bits in h, used both as
// the Kademlia bucket index (leading_zero_bits(local XOR remote)) and as the
// store's proximity weight (leading_zero_bits(key XOR local)).
func LeadingZeroBits(h types.HashKey) uint32 {
	var bits uint32
	for _, b := range h {
		if b == 0 {
			bits += 8
			continue
		}
		for mask := byte(0x80); mask > 0; mask >>= 1 {
			if b&mask != 0 {
				return bits
			}
			bits++
		}
		return bits
	}
	return bits
}

// Less reports whether a is closer to target than b under the XOR metric
// (smaller XOR distance, i.e. more leading zero bits, is closer).
func Less(a, b, target types.HashKey) bool {
	da := XOR(a, target)
	db := XOR(b, target)
	for i := range da {
		if da[i] != db[i] {
			return da[i] < db[i]
		}
	}
	return false
}
