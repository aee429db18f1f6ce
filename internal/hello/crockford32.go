package hello

import "fmt"

// crockfordAlphabet is the Crockford-compatible base32 alphabet used
// throughout the framework for peer ids and signatures in URI form
// (spec.md §6: "Crockford-compatible alphabet ... no padding"). It omits
// the visually ambiguous I, L, O, U.
//
// The encode/decode loop here is hand-written rather than pulled from a
// library: every base32 codec in the example pack (multiformats/go-base32)
// implements the RFC 4648 alphabet, not Crockford's, so adopting one would
// silently produce the wrong wire bytes. The bit-packing shape below
// mirrors multiformats/go-base32's table-driven approach even though the
// table itself had to be written by hand. See DESIGN.md, component C.
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordDecodeTable [256]int8

func init() {
	for i := range crockfordDecodeTable {
		crockfordDecodeTable[i] = -1
	}
	for i, c := range crockfordAlphabet {
		crockfordDecodeTable[c] = int8(i)
		// Crockford's spec treats lowercase as equivalent to uppercase.
		if c >= 'A' && c <= 'Z' {
			crockfordDecodeTable[c-'A'+'a'] = int8(i)
		}
	}
}

// encodeCrockford32 encodes b into unpadded Crockford base32.
func encodeCrockford32(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// ceil(len(b)*8 / 5)
	outLen := (len(b)*8 + 4) / 5
	out := make([]byte, outLen)

	var buf uint64
	var bits uint
	pos := 0
	for _, v := range b {
		buf = (buf << 8) | uint64(v)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[pos] = crockfordAlphabet[(buf>>bits)&0x1f]
			pos++
		}
	}
	if bits > 0 {
		out[pos] = crockfordAlphabet[(buf<<(5-bits))&0x1f]
		pos++
	}
	return string(out[:pos])
}

// decodeCrockford32 decodes unpadded Crockford base32 back to raw bytes.
// expectedLen is the exact output length (the caller always knows it, since
// peer ids/signatures are fixed-width), used to reject truncated input.
func decodeCrockford32(s string, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	var buf uint64
	var bits uint
	for i := 0; i < len(s); i++ {
		v := crockfordDecodeTable[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("%w: invalid crockford32 character %q", ErrMalformedWire, s[i])
		}
		buf = (buf << 5) | uint64(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
		}
	}
	if len(out) != expectedLen {
		return nil, fmt.Errorf("%w: expected %d decoded bytes, got %d", ErrMalformedWire, expectedLen, len(out))
	}
	return out, nil
}
