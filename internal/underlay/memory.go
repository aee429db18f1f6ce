package underlay

import (
	"errors"
	"sync"

	"github.com/kademlia-dht/overlay/pkg/types"
)

// ErrUnknownPeer is returned by ConnectToPeer when addr does not name a peer
// previously registered with the fabric.
var ErrUnknownPeer = errors.New("underlay: unknown peer address")

// Fabric is the shared broker behind a set of InMemoryUnderlay instances —
// one per simulated node — standing in for whatever resolves addresses to
// live connections in a real transport. Tests construct one Fabric and one
// InMemoryUnderlay per peer against it.
type Fabric struct {
	mu       sync.Mutex
	handlers map[types.PeerID]Handlers
	peers    map[Address]types.PeerID
	linked   map[types.PeerID]map[types.PeerID]bool
}

// NewFabric returns an empty broker with no registered peers or links.
func NewFabric() *Fabric {
	return &Fabric{
		handlers: make(map[types.PeerID]Handlers),
		peers:    make(map[Address]types.PeerID),
		linked:   make(map[types.PeerID]map[types.PeerID]bool),
	}
}

// Register binds addr to peer so a later ConnectToPeer(addr, ...) from any
// other peer on this fabric resolves to it.
func (f *Fabric) Register(addr Address, peer types.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peers[addr] = peer
}

func (f *Fabric) dial(from, to types.PeerID) error {
	f.mu.Lock()
	if f.linked[from][to] {
		f.mu.Unlock()
		return nil
	}
	if f.linked[from] == nil {
		f.linked[from] = make(map[types.PeerID]bool)
	}
	if f.linked[to] == nil {
		f.linked[to] = make(map[types.PeerID]bool)
	}
	f.linked[from][to] = true
	f.linked[to][from] = true
	fromHandlers, haveFrom := f.handlers[from]
	toHandlers, haveTo := f.handlers[to]
	f.mu.Unlock()

	toQueue := &loopbackQueue{fabric: f, from: to, to: from}
	fromQueue := &loopbackQueue{fabric: f, from: from, to: to}

	if haveFrom && fromHandlers.OnConnect != nil {
		fromHandlers.OnConnect(to, fromQueue)
	}
	if haveTo && toHandlers.OnConnect != nil {
		toHandlers.OnConnect(from, toQueue)
	}
	return nil
}

func (f *Fabric) deliver(from, to types.PeerID, envelope []byte) error {
	f.mu.Lock()
	linked := f.linked[to][from]
	handlers, ok := f.handlers[to]
	f.mu.Unlock()
	if !linked {
		return errors.New("underlay: peers not connected")
	}
	if ok && handlers.OnMessage != nil {
		handlers.OnMessage(from, envelope)
	}
	return nil
}

func (f *Fabric) disconnect(peer types.PeerID) {
	f.mu.Lock()
	delete(f.handlers, peer)
	remotes := f.linked[peer]
	delete(f.linked, peer)
	for remote := range remotes {
		delete(f.linked[remote], peer)
	}
	f.mu.Unlock()
	for remote := range remotes {
		f.mu.Lock()
		h, ok := f.handlers[remote]
		f.mu.Unlock()
		if ok && h.OnDisconnect != nil {
			h.OnDisconnect(peer)
		}
	}
}

// InMemoryUnderlay is a test double implementing Underlay for exactly one
// peer against a shared Fabric: ConnectToPeer synchronously links both
// sides via Handlers.OnConnect, and Send on the resulting MessageQueue
// delivers straight into the peer's OnMessage handler. It deliberately has
// no notion of sockets, NAT, or network delay — the surface spec.md §1
// excludes from scope.
type InMemoryUnderlay struct {
	fabric *Fabric
	self   types.PeerID
}

// NewInMemoryUnderlay binds self's identity to fabric. Register self's
// dialable address(es) on fabric separately before other peers try to
// reach it.
func NewInMemoryUnderlay(fabric *Fabric, self types.PeerID) *InMemoryUnderlay {
	return &InMemoryUnderlay{fabric: fabric, self: self}
}

// Connect brings self online on the fabric, invoking h's callbacks for the
// lifetime of the returned handle. cfg is accepted for interface
// conformance; the fabric ignores listen addresses (Register handles
// address binding explicitly).
func (u *InMemoryUnderlay) Connect(cfg Config, h Handlers) (Handle, error) {
	u.fabric.mu.Lock()
	u.fabric.handlers[u.self] = h
	u.fabric.mu.Unlock()
	return &memoryHandle{fabric: u.fabric, self: u.self}, nil
}

// ConnectToPeer resolves addr on the fabric and links self to it,
// synchronously firing both sides' OnConnect.
func (u *InMemoryUnderlay) ConnectToPeer(addr Address, priority int, bandwidth int64) error {
	u.fabric.mu.Lock()
	remote, ok := u.fabric.peers[addr]
	u.fabric.mu.Unlock()
	if !ok {
		return ErrUnknownPeer
	}
	return u.fabric.dial(u.self, remote)
}

// ReceiveContinue is a no-op: the fabric delivers synchronously and never
// withholds a second envelope pending this call.
func (u *InMemoryUnderlay) ReceiveContinue(mq MessageQueue) {}

type memoryHandle struct {
	fabric *Fabric
	self   types.PeerID
}

func (h *memoryHandle) Disconnect() error {
	h.fabric.disconnect(h.self)
	return nil
}

// loopbackQueue is the MessageQueue handed to from's OnConnect handler for
// sending to to; Send delivers straight into to's OnMessage handler.
type loopbackQueue struct {
	mu     sync.Mutex
	fabric *Fabric
	from   types.PeerID
	to     types.PeerID
	closed bool
}

func (q *loopbackQueue) Send(envelope []byte) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return errors.New("underlay: loopback queue closed")
	}
	return q.fabric.deliver(q.from, q.to, envelope)
}

func (q *loopbackQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
