package dht

import "errors"

var (
	// ErrUnsupportedType names the case where no validator is registered
	// for a block's declared type. No function in this package returns it.
	// Per spec.md §7 ("Unsupported") the message is still forwarded if
	// routing allows, just never stored locally.
	ErrUnsupportedType = errors.New("dht: unsupported block type")
	// ErrNoRoute names the case where the local table has no peers at all
	// and the local node is not authoritative for the key. No function in
	// this package returns it.
	ErrNoRoute = errors.New("dht: no route to key")
)
