package types

// BlockType is the small enum identifying the kind of payload stored under
// a DHT key. Dynamic plugin loading in the original system is replaced here
// by compile-time registration: each value has exactly one validator in
// internal/validator.
type BlockType uint32

const (
	// BlockTypeAny matches any block type; only ever used in queries, never
	// stored.
	BlockTypeAny BlockType = 0
	// BlockTypeFSData is file-sharing content-addressed data: key = H(data).
	BlockTypeFSData BlockType = 1
	// BlockTypeFSIndex is a file-sharing index block: key = H(data).
	BlockTypeFSIndex BlockType = 2
	// BlockTypeUserBlock is a signed, zone-derived record set: key =
	// H(verification_key).
	BlockTypeUserBlock BlockType = 3
	// BlockTypeGNSRecord is a GNS namerecord block.
	BlockTypeGNSRecord BlockType = 4
	// BlockTypeHello is a signed peer descriptor (see internal/hello).
	BlockTypeHello BlockType = 5
)

// String gives a human-readable block type name for logging.
func (t BlockType) String() string {
	switch t {
	case BlockTypeAny:
		return "any"
	case BlockTypeFSData:
		return "fs-data"
	case BlockTypeFSIndex:
		return "fs-index"
	case BlockTypeUserBlock:
		return "user-block"
	case BlockTypeGNSRecord:
		return "gns-record"
	case BlockTypeHello:
		return "hello"
	default:
		return "unknown"
	}
}

// SigPurpose is the 32-bit domain-separation tag concatenated into every
// signed payload so that a signature produced for one purpose can never be
// replayed as valid for another.
type SigPurpose uint32

const (
	// SigPurposeHello signs a HELLO descriptor's (expiration, H(addresses)).
	SigPurposeHello SigPurpose = 1
	// SigPurposeUserBlock signs a user-block's record set header.
	SigPurposeUserBlock SigPurpose = 2
	// SigPurposePathEntry signs one hop of a put/get path.
	SigPurposePathEntry SigPurpose = 3
)

// RouteOptions are the PUT/GET processing flags carried on the wire.
type RouteOptions uint16

const (
	// RouteOptionNone requests default routing behavior.
	RouteOptionNone RouteOptions = 0
	// RouteOptionDemultiplexEverywhere is set by the zone-master publisher
	// on its PUTs and carried on the wire. internal/dht's router does not
	// read it: forwarding and local storage are the same with or without it.
	RouteOptionDemultiplexEverywhere RouteOptions = 1 << 0
	// RouteOptionRecordRoute appends signed path entries as the
	// request/reply traverses peers.
	RouteOptionRecordRoute RouteOptions = 1 << 1
	// RouteOptionFindApproximate is carried on the wire; internal/dht's
	// router does not read it.
	RouteOptionFindApproximate RouteOptions = 1 << 2
)

// Has reports whether a flag is set.
func (o RouteOptions) Has(flag RouteOptions) bool {
	return o&flag != 0
}
