package types

import (
	"fmt"
	"strings"
)

// Address is one transport URI carried in a peer descriptor, of the form
// "scheme://suffix" where scheme is a communicator tag (alphanumeric plus
// '+') and suffix is communicator-specific opaque text.
type Address struct {
	Scheme string
	Suffix string
}

// ParseAddress splits a "scheme://suffix" string into its communicator tag
// and suffix, validating the scheme alphabet and rejecting an empty suffix.
func ParseAddress(uri string) (Address, error) {
	parts := strings.SplitN(uri, "://", 2)
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("types: address %q missing scheme separator", uri)
	}
	scheme, suffix := parts[0], parts[1]
	if scheme == "" || !isValidScheme(scheme) {
		return Address{}, fmt.Errorf("types: address %q has invalid scheme %q", uri, scheme)
	}
	if suffix == "" {
		return Address{}, fmt.Errorf("types: address %q has empty suffix", uri)
	}
	return Address{Scheme: scheme, Suffix: suffix}, nil
}

func isValidScheme(s string) bool {
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '+' {
			return false
		}
	}
	return true
}

// URI reassembles the address into its "scheme://suffix" wire form.
func (a Address) URI() string {
	return a.Scheme + "://" + a.Suffix
}

// Equals compares two addresses by their wire form.
func (a Address) Equals(o Address) bool {
	return a.Scheme == o.Scheme && a.Suffix == o.Suffix
}
