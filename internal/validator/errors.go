package validator

import "errors"

var (
	// ErrMalformedBlock covers structural parse failures of a block's
	// payload for its declared type.
	ErrMalformedBlock = errors.New("validator: malformed block")
	// ErrInvalidSignature is returned when a signed block's embedded
	// signature does not verify.
	ErrInvalidSignature = errors.New("validator: invalid signature")
	// ErrKeyMismatch is returned when a block's declared key does not
	// match the key derived from its payload.
	ErrKeyMismatch = errors.New("validator: key does not match derived key")
)
