// Package underlay defines the external collaborator boundary between the
// router and whatever transport stack actually opens sockets, performs NAT
// traversal, and multiplexes connections (spec.md §1 places underlay
// transports and NAT traversal out of scope; this module specifies only the
// interface it offers). Grounded on the connect/handlers/callback shape of
// dep2p-go-dep2p's internal/core/connmgr and pkg/interfaces/endpoint, and on
// spec.md §6's "Router -> underlay" primitive list.
package underlay

import (
	"github.com/kademlia-dht/overlay/pkg/types"
)

// Handlers is the set of callbacks Connect registers with the underlying
// transport. AddressChange fires when the underlay learns a new reachable
// address for the local peer (e.g. after a NAT hole-punch or relay
// assignment), independent of any single connection's lifecycle. OnMessage
// delivers an inbound envelope from peer; spec.md §6's primitive list names
// only connect/disconnect/address-change callbacks explicitly, but the
// router cannot process PUT/GET/RESULT traffic without some inbound
// delivery path, so this interface adds OnMessage as the one callback the
// distilled primitive list leaves implicit.
type Handlers struct {
	OnConnect       func(peer types.PeerID, mq MessageQueue)
	OnDisconnect    func(peer types.PeerID)
	OnAddressChange func(addr Address)
	OnMessage       func(peer types.PeerID, envelope []byte)
}

// Address is an opaque transport-level reachability descriptor (e.g. a
// multiaddr-shaped string); this package never interprets its contents.
type Address string

// MessageQueue is the per-peer send handle the underlay hands back through
// Handlers.OnConnect. It is satisfied by internal/mq.Queue; underlay depends
// only on this narrow shape to avoid importing internal/mq directly.
type MessageQueue interface {
	Send(envelope []byte) error
	Closed() bool
}

// Config bundles the parameters Connect needs to bring the underlay online.
type Config struct {
	ListenAddresses []Address
	LocalPeerID     types.PeerID // local identity, used by the transport for its handshake
}

// Handle represents one running underlay session; Disconnect tears it down.
type Handle interface {
	Disconnect() error
}

// Underlay is the narrow contract the router requires of a transport
// implementation (spec.md §6): bring the stack up once via Connect, then
// ask it to dial specific peers, send per-peer envelopes, and release
// backpressure via ReceiveContinue. internal/underlay never implements this
// against a real socket — only InMemoryUnderlay, for tests, does.
type Underlay interface {
	// Connect brings the transport online, invoking h's callbacks for the
	// lifetime of the returned handle.
	Connect(cfg Config, h Handlers) (Handle, error)

	// ConnectToPeer asks the transport to establish (or prioritize) a
	// connection toward addr. priority and bandwidth are transport-level
	// hints (e.g. for scheduling scarce dial slots); a transport is free to
	// ignore either.
	ConnectToPeer(addr Address, priority int, bandwidth int64) error

	// ReceiveContinue signals the transport that the caller has finished
	// processing the most recently delivered inbound message on mq and is
	// ready for more (spec.md §5 receive_continue backpressure contract).
	ReceiveContinue(mq MessageQueue)
}
