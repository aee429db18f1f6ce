package crypto

import "errors"

var (
	// ErrInvalidSignature is returned by Verify when the signature does not
	// validate under the expected purpose and payload.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	// ErrInvalidKeySize is returned when a key is the wrong length.
	ErrInvalidKeySize = errors.New("crypto: invalid key size")
	// ErrInvalidSignatureSize is returned when a signature is the wrong length.
	ErrInvalidSignatureSize = errors.New("crypto: invalid signature size")
)
