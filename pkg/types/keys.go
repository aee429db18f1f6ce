package types

import (
	"encoding/hex"
	"fmt"
)

// HashKeySize is the width of the Kademlia coordinate space: 512 bits,
// the output size of SHA-512.
const HashKeySize = 64

// HashKey is a 512-bit value used both as the namespace for all DHT keys
// and as the Kademlia coordinate derived from a peer identity.
type HashKey [HashKeySize]byte

// String renders the key as lowercase hex.
func (h HashKey) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the key is the all-zero value (never a valid
// derived key, used as a sentinel for "not set").
func (h HashKey) IsZero() bool {
	return h == HashKey{}
}

// Equals does a constant-width comparison; not constant-time, since hash
// keys are not secret.
func (h HashKey) Equals(o HashKey) bool {
	return h == o
}

// Less gives HashKey a total order for use as a map/sort key when lexical
// (not XOR-distance) ordering is needed, e.g. stable replication tie-breaks.
func (h HashKey) Less(o HashKey) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

// HashKeyFromBytes copies exactly HashKeySize bytes into a HashKey.
func HashKeyFromBytes(b []byte) (HashKey, error) {
	var h HashKey
	if len(b) != HashKeySize {
		return h, fmt.Errorf("types: expected %d bytes for hash key, got %d", HashKeySize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Ed25519PublicKeySize is the size of a peer's long-term identity key.
const Ed25519PublicKeySize = 32

// PeerID is a peer's 32-byte EdDSA public key, the node's long-term
// identifier.
type PeerID [Ed25519PublicKeySize]byte

// String renders the peer ID as lowercase hex.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// Bytes returns a fresh copy of the raw key bytes.
func (p PeerID) Bytes() []byte {
	b := make([]byte, Ed25519PublicKeySize)
	copy(b, p[:])
	return b
}

// PeerIDFromBytes copies exactly Ed25519PublicKeySize bytes into a PeerID.
func PeerIDFromBytes(b []byte) (PeerID, error) {
	var p PeerID
	if len(b) != Ed25519PublicKeySize {
		return p, fmt.Errorf("types: expected %d bytes for peer id, got %d", Ed25519PublicKeySize, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// Ed25519SignatureSize is the size of an EdDSA signature.
const Ed25519SignatureSize = 64

// Signature is a raw EdDSA signature.
type Signature [Ed25519SignatureSize]byte

// Bytes returns a fresh copy of the raw signature bytes.
func (s Signature) Bytes() []byte {
	b := make([]byte, Ed25519SignatureSize)
	copy(b, s[:])
	return b
}

// SignatureFromBytes copies exactly Ed25519SignatureSize bytes into a Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != Ed25519SignatureSize {
		return s, fmt.Errorf("types: expected %d bytes for signature, got %d", Ed25519SignatureSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}
