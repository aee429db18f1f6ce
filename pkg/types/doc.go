// Package types holds the wire-level value types shared by every package in
// this module: hash keys, peer identities, block types, and the typed error
// taxonomy (Kind, OverlayError).
package types
