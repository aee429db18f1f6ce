// Package hello builds, serializes, signs, and verifies peer descriptors
// ("HELLOs"): signed tuples of (peer public key, expiration, transport URI
// set) that bootstrap DHT connectivity. Two wire forms share this data
// model — a binary block form for DHT storage, and a URI form for
// command-line bootstrap — grounded on other_examples' bfix-gnunet-go
// blocks/hello.go, the prior Go port of this exact subsystem.
package hello

import (
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

const uriPrefix = "gnunet://hello/"

// Descriptor is a parsed, verified peer descriptor.
type Descriptor struct {
	PeerID     types.PeerID
	Expiration time.Time
	Addresses  []types.Address
	Signature  types.Signature
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

type buildOptions struct{}

// Build constructs, deduplicates, hashes, and signs a new descriptor. The
// address list is deduplicated in insertion order before signing (spec.md
// §3 invariant: "duplicate address strings are deduplicated on insertion
// preserving first-seen order").
func Build(priv crypto.PrivateKey, addrStrings []string, expiration time.Time, _ ...BuildOption) (*Descriptor, error) {
	if len(addrStrings) > maxAddresses {
		return nil, ErrTooManyAddresses
	}

	addrs, err := dedupAndParse(addrStrings)
	if err != nil {
		return nil, err
	}

	pub := priv.Public()
	d := &Descriptor{
		PeerID:     pub.PeerID(),
		Expiration: expiration,
		Addresses:  addrs,
	}
	sig, err := crypto.Sign(priv, types.SigPurposeHello, signedPayload(d))
	if err != nil {
		return nil, err
	}
	d.Signature = sig
	return d, nil
}

func dedupAndParse(addrStrings []string) ([]types.Address, error) {
	seen := make(map[string]bool, len(addrStrings))
	out := make([]types.Address, 0, len(addrStrings))
	for _, s := range addrStrings {
		a, err := types.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
		}
		uri := a.URI()
		if seen[uri] {
			continue
		}
		seen[uri] = true
		out = append(out, a)
	}
	return out, nil
}

// addressHash hashes the NUL-terminated concatenation of address URIs, the
// quantity the signature actually covers (spec.md §3: "H(concatenated
// address strings including trailing NUL)").
func addressHash(addrs []types.Address) types.HashKey {
	var buf []byte
	for _, a := range addrs {
		buf = append(buf, a.URI()...)
		buf = append(buf, 0)
	}
	return crypto.Hash(buf)
}

func signedPayload(d *Descriptor) []byte {
	hAddr := addressHash(d.Addresses)
	buf := make([]byte, 8+len(hAddr))
	binary.BigEndian.PutUint64(buf[0:8], uint64(d.Expiration.UnixMicro()))
	copy(buf[8:], hAddr[:])
	return buf
}

// Verify checks the descriptor's signature under its claimed peer id and
// that it has not expired at acceptance time (checkExpiry=false skips the
// expiry check, used e.g. when re-parsing a locally-authored descriptor
// about to be refreshed).
func (d *Descriptor) Verify(checkExpiry bool) error {
	pub := crypto.PublicKeyFromPeerID(d.PeerID)
	if err := crypto.Verify(pub, types.SigPurposeHello, signedPayload(d), d.Signature); err != nil {
		return ErrInvalidSignature
	}
	if checkExpiry && !d.Expiration.After(time.Now()) {
		return ErrExpired
	}
	return nil
}

// Bytes serializes the descriptor into the binary block form:
// BlockHeader{pid:32B, sig:64B, expiration:8B big-endian} followed by
// NUL-terminated URI strings concatenated.
func (d *Descriptor) Bytes() []byte {
	var out []byte
	out = append(out, d.PeerID[:]...)
	sigBytes := d.Signature.Bytes()
	out = append(out, sigBytes...)
	expBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(expBuf, uint64(d.Expiration.UnixMicro()))
	out = append(out, expBuf...)
	for _, a := range d.Addresses {
		out = append(out, a.URI()...)
		out = append(out, 0)
	}
	return out
}

const binaryHeaderSize = types.Ed25519PublicKeySize + types.Ed25519SignatureSize + 8

// ParseBytes parses the binary block form, recomputes the address hash,
// verifies the signature, and checks expiration.
func ParseBytes(buf []byte) (*Descriptor, error) {
	if len(buf) < binaryHeaderSize {
		return nil, fmt.Errorf("%w: short HELLO block (%d bytes)", ErrMalformedWire, len(buf))
	}
	pid, err := types.PeerIDFromBytes(buf[0:types.Ed25519PublicKeySize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWire, err)
	}
	off := types.Ed25519PublicKeySize
	sig, err := types.SignatureFromBytes(buf[off : off+types.Ed25519SignatureSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWire, err)
	}
	off += types.Ed25519SignatureSize
	expMicros := binary.BigEndian.Uint64(buf[off : off+8])
	off += 8

	addrStrings, err := splitNULTerminated(buf[off:])
	if err != nil {
		return nil, err
	}
	addrs, err := dedupAndParse(addrStrings)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		PeerID:     pid,
		Expiration: time.UnixMicro(int64(expMicros)),
		Addresses:  addrs,
		Signature:  sig,
	}
	if err := d.Verify(true); err != nil {
		return nil, err
	}
	return d, nil
}

func splitNULTerminated(buf []byte) ([]string, error) {
	var out []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			out = append(out, string(buf[start:i]))
			start = i + 1
		}
	}
	if start != len(buf) {
		return nil, fmt.Errorf("%w: address block not NUL-terminated", ErrMalformedWire)
	}
	return out, nil
}

// URL renders the descriptor into its URI form:
// gnunet://hello/<base32(pid)>/<base32(sig)>/<decimal-microseconds>?<scheme>=<url-encoded(suffix)>&...
func (d *Descriptor) URL() string {
	var b strings.Builder
	b.WriteString(uriPrefix)
	b.WriteString(encodeCrockford32(d.PeerID[:]))
	b.WriteString("/")
	sigBytes := d.Signature.Bytes()
	b.WriteString(encodeCrockford32(sigBytes))
	b.WriteString("/")
	b.WriteString(strconv.FormatInt(d.Expiration.UnixMicro(), 10))
	b.WriteString("?")
	for i, a := range d.Addresses {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(a.Scheme)
		b.WriteString("=")
		b.WriteString(url.QueryEscape(a.Suffix))
	}
	return b.String()
}

// ParseURL parses the URI form, verifies the signature, and checks
// expiration. checkExpiry=false is used by tooling that wants to inspect an
// expired descriptor without error (e.g. diagnostics).
func ParseURL(u string, checkExpiry bool) (*Descriptor, error) {
	if !strings.HasPrefix(u, uriPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedWire, uriPrefix)
	}
	rest := u[len(uriPrefix):]

	pathPart := rest
	query := ""
	if idx := strings.Index(rest, "?"); idx >= 0 {
		pathPart = rest[:idx]
		query = rest[idx+1:]
	}

	parts := strings.Split(pathPart, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 path segments, got %d", ErrMalformedWire, len(parts))
	}

	pidBytes, err := decodeCrockford32(parts[0], types.Ed25519PublicKeySize)
	if err != nil {
		return nil, err
	}
	pid, err := types.PeerIDFromBytes(pidBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWire, err)
	}

	sigBytes, err := decodeCrockford32(parts[1], types.Ed25519SignatureSize)
	if err != nil {
		return nil, err
	}
	sig, err := types.SignatureFromBytes(sigBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWire, err)
	}

	expMicros, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiration %q", ErrMalformedWire, parts[2])
	}

	var addrStrings []string
	if query != "" {
		for _, kv := range strings.Split(query, "&") {
			eq := strings.SplitN(kv, "=", 2)
			if len(eq) != 2 {
				return nil, fmt.Errorf("%w: malformed query segment %q", ErrMalformedAddress, kv)
			}
			suffix, err := url.QueryUnescape(eq[1])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
			}
			addrStrings = append(addrStrings, eq[0]+"://"+suffix)
		}
	}
	addrs, err := dedupAndParse(addrStrings)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		PeerID:     pid,
		Expiration: time.UnixMicro(expMicros),
		Addresses:  addrs,
		Signature:  sig,
	}
	if err := d.Verify(checkExpiry); err != nil {
		return nil, err
	}
	return d, nil
}

// Equals compares two descriptors ignoring expiration, matching
// gnunet-go's HelloBlock.Equals semantics.
func (d *Descriptor) Equals(o *Descriptor) bool {
	if d.PeerID != o.PeerID || d.Signature != o.Signature || len(d.Addresses) != len(o.Addresses) {
		return false
	}
	for i, a := range d.Addresses {
		if !a.Equals(o.Addresses[i]) {
			return false
		}
	}
	return true
}

// Envelope is the wire message wrapping a descriptor for peer-to-peer
// gossip (the "HELLO_URI" message type of spec.md §4.C).
type Envelope struct {
	AddressCount uint16
	Payload      []byte
}

// ToEnvelope wraps a descriptor for gossip.
func ToEnvelope(d *Descriptor) *Envelope {
	return &Envelope{
		AddressCount: uint16(len(d.Addresses)),
		Payload:      d.Bytes(),
	}
}
