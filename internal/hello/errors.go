package hello

import "errors"

var (
	// ErrMalformedAddress covers a missing scheme, a non-alphanumeric-plus
	// scheme, or an empty suffix.
	ErrMalformedAddress = errors.New("hello: malformed address")
	// ErrInvalidSignature is returned when a parsed descriptor's signature
	// does not verify under its claimed peer id.
	ErrInvalidSignature = errors.New("hello: invalid signature")
	// ErrExpired is returned when a parsed descriptor's expiration is not
	// in the future. Distinct from ErrMalformedWire/ErrInvalidSignature: an
	// expired HELLO is not an error condition, just stale.
	ErrExpired = errors.New("hello: expired")
	// ErrTooManyAddresses is returned when more than 65535 addresses are
	// supplied, the field-width limit of the wire format.
	ErrTooManyAddresses = errors.New("hello: too many addresses")
	// ErrMalformedWire covers structural parse failures of the binary or
	// URL wire forms themselves (short buffers, bad prefixes, undecodable
	// base32).
	ErrMalformedWire = errors.New("hello: malformed wire format")
)

const maxAddresses = 65535
