package dht

import (
	"math"
	"time"

	"github.com/kademlia-dht/overlay/internal/routing"
	"github.com/kademlia-dht/overlay/internal/store"
	"github.com/kademlia-dht/overlay/internal/validator"
	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/log"
	"github.com/kademlia-dht/overlay/pkg/types"
)

var logger = log.Logger("dht")

// Config tunes the router's replication and timeout behavior.
type Config struct {
	// EstimatedNetworkSize feeds the hop_count forwarding threshold,
	// log2(EstimatedNetworkSize) (spec.md §4.E point 1).
	EstimatedNetworkSize uint64
	// GetTimeout bounds how long outstanding GET state survives before
	// being reaped.
	GetTimeout time.Duration
	// OutstandingCapacity bounds the number of distinct in-flight GET keys
	// tracked at once.
	OutstandingCapacity int
	// ReplyGroupExpectedSize sizes each GET's reply-bloom group.
	ReplyGroupExpectedSize uint64
}

// DefaultConfig returns the router defaults used absent explicit
// configuration.
func DefaultConfig() Config {
	return Config{
		EstimatedNetworkSize:   1000,
		GetTimeout:             30 * time.Second,
		OutstandingCapacity:    4096,
		ReplyGroupExpectedSize: 128,
	}
}

// Router is the central DHT state machine (spec.md §4.E): it forwards PUT
// and GET messages toward the peers closest to their key, consults and
// populates the local block store, and demultiplexes RESULT replies back
// along the recorded get-path.
type Router struct {
	priv types.PeerID // local identity: refuses self-forwarding and names this hop in signed path entries
	key  crypto.PrivateKey

	table       *routing.Table
	blocks      *store.Store
	validators  *validator.Registry
	outstanding *outstandingTable
	cfg         Config

	stopSweep chan struct{}
}

// NewRouter wires a router from its collaborators.
func NewRouter(priv crypto.PrivateKey, table *routing.Table, blocks *store.Store, validators *validator.Registry, cfg Config) (*Router, error) {
	outstanding, err := newOutstandingTable(cfg.OutstandingCapacity)
	if err != nil {
		return nil, err
	}
	return &Router{
		priv:        priv.Public().PeerID(),
		key:         priv,
		table:       table,
		blocks:      blocks,
		validators:  validators,
		outstanding: outstanding,
		cfg:         cfg,
		stopSweep:   make(chan struct{}),
	}, nil
}

// replicationCount computes R = max(1, floor(desired / (1+hop))), spec.md
// §4.E "Replication policy".
func replicationCount(desired, hop uint32) int {
	r := int(desired) / (1 + int(hop))
	if r < 1 {
		r = 1
	}
	return r
}

func (r *Router) forwardThreshold() uint32 {
	if r.cfg.EstimatedNetworkSize <= 1 {
		return 0
	}
	return uint32(math.Log2(float64(r.cfg.EstimatedNetworkSize)))
}

func peerBloomFromWire(raw []byte) (*bloom.Filter, error) {
	if len(raw) == 0 {
		return bloom.NewPeerFilter(), nil
	}
	return bloom.UnmarshalFilter(raw)
}

// appendPathEntry signs (previous entry's encoded bytes || self peer id)
// under SigPurposePathEntry and appends the resulting hop to path,
// producing the tamper-evident chain routeResultAlongPath verifies.
func (r *Router) appendPathEntry(path []PathEntry) ([]PathEntry, error) {
	var prev []byte
	if len(path) > 0 {
		prev = path[len(path)-1].encode()
	}
	payload := append(append([]byte{}, prev...), r.priv[:]...)
	sig, err := crypto.Sign(r.key, types.SigPurposePathEntry, payload)
	if err != nil {
		return nil, err
	}
	return append(path, PathEntry{Peer: r.priv, Signature: sig}), nil
}

// verifyPathContinuity checks every hop's signature against the chain
// accumulated up to that point (spec.md §4.E "verify path-signature
// continuity").
func verifyPathContinuity(path []PathEntry) bool {
	var prev []byte
	for _, e := range path {
		payload := append(append([]byte{}, prev...), e.Peer[:]...)
		pub := crypto.PublicKeyFromPeerID(e.Peer)
		if err := crypto.Verify(pub, types.SigPurposePathEntry, payload, e.Signature); err != nil {
			return false
		}
		prev = e.encode()
	}
	return true
}

// Put originates a local PUT for key/payload, forwarding toward the
// closest peers and storing locally if this node is among them.
func (r *Router) Put(blockType types.BlockType, key types.HashKey, payload []byte, expiration time.Time, desiredReplication uint32, options types.RouteOptions) error {
	msg := &PutMessage{
		Type:               blockType,
		Options:            options,
		DesiredReplication: desiredReplication,
		HopCount:           0,
		Expiration:         expiration,
		Key:                key,
		Payload:            payload,
	}
	return r.HandlePut(msg)
}

// HandlePut processes a PUT, whether locally originated or received from a
// peer (spec.md §4.E "PUT path").
func (r *Router) HandlePut(msg *PutMessage) error {
	block := &types.Block{Key: msg.Key, Type: msg.Type, Payload: msg.Payload, Expiration: msg.Expiration}

	v, known := r.validators.Get(msg.Type)
	if known {
		if err := v.CheckBlock(block); err != nil {
			logger.Warn("dropping malformed PUT", "type", msg.Type, "key", msg.Key, "error", err)
			return err
		}
	}

	peerBloom, err := peerBloomFromWire(msg.PeerBloom)
	if err != nil {
		return err
	}

	amClosest := r.table.AmClosest(msg.Key, peerBloom)
	if msg.HopCount < r.forwardThreshold() || !amClosest {
		replication := replicationCount(msg.DesiredReplication, msg.HopCount)
		peers := r.table.ClosestPeers(msg.Key, replication, peerBloom)
		for _, e := range peers {
			peerBloom.Add(e.PeerID[:])
		}
		marshaled, err := peerBloom.MarshalBinary()
		if err != nil {
			return err
		}

		fwd := *msg
		fwd.HopCount = msg.HopCount + 1
		fwd.PeerBloom = marshaled
		if msg.Options.Has(types.RouteOptionRecordRoute) {
			path, err := r.appendPathEntry(msg.PutPath)
			if err != nil {
				return err
			}
			fwd.PutPath = path
		}

		encoded := EncodeEnvelope(MessageKindPut, fwd.Encode())
		for _, e := range peers {
			if err := e.MQ.Send(encoded); err != nil {
				logger.Debug("put forward failed", "peer", e.PeerID, "error", err)
			}
		}
	}

	if amClosest && known {
		r.blocks.Put(block)
	}
	return nil
}

// Get originates a local GET, registering a reply channel and forwarding
// the request toward the closest peers. The returned channel receives each
// distinct reply in arrival order; cancel releases the outstanding state
// early.
func (r *Router) Get(blockType types.BlockType, key types.HashKey, xquery []byte, desiredReplication uint32, options types.RouteOptions) (replies <-chan *types.Block, cancel func()) {
	ch := make(chan *types.Block, 8)
	og := r.outstanding.getOrCreate(key, r.cfg.ReplyGroupExpectedSize, 0, r.cfg.GetTimeout)
	og.mu.Lock()
	og.local = append(og.local, localRequester{replyCh: ch})
	og.mu.Unlock()

	msg := &GetMessage{
		Type:               blockType,
		Options:            options,
		DesiredReplication: desiredReplication,
		HopCount:           0,
		Key:                key,
		XQuery:             xquery,
	}
	if err := r.HandleGet(msg); err != nil {
		logger.Warn("local GET dispatch failed", "key", key, "error", err)
	}

	return ch, func() { r.outstanding.remove(key) }
}

// HandleGet processes a GET, whether locally originated or received from a
// peer (spec.md §4.E "GET path").
func (r *Router) HandleGet(msg *GetMessage) error {
	v, known := r.validators.Get(msg.Type)
	if known {
		if err := v.CheckQuery(msg.Key, msg.XQuery); err != nil {
			return err
		}
	}

	og := r.outstanding.getOrCreate(msg.Key, r.cfg.ReplyGroupExpectedSize, msg.BloomMutator, r.cfg.GetTimeout)

	lastWasTerminal := false
	if known {
		hits := r.blocks.Get(msg.Key, msg.Type, nil)
		for _, hit := range hits {
			og.mu.Lock()
			result := v.CheckReply(og.group, msg.Key, msg.XQuery, hit)
			og.mu.Unlock()
			switch result {
			case validator.ReplyOKLast, validator.ReplyOKMore:
				r.routeReply(msg, hit)
				if result == validator.ReplyOKLast {
					lastWasTerminal = true
				}
			case validator.ReplyDuplicate:
				logger.Debug("suppressed duplicate reply", "key", msg.Key)
			}
		}
	}
	if lastWasTerminal {
		return nil
	}

	peerBloom, err := peerBloomFromWire(msg.PeerBloom)
	if err != nil {
		return err
	}
	replication := replicationCount(msg.DesiredReplication, msg.HopCount)
	peers := r.table.ClosestPeers(msg.Key, replication, peerBloom)
	for _, e := range peers {
		peerBloom.Add(e.PeerID[:])
	}
	marshaled, err := peerBloom.MarshalBinary()
	if err != nil {
		return err
	}

	path, err := r.appendPathEntry(msg.GetPath)
	if err != nil {
		return err
	}

	fwd := *msg
	fwd.HopCount = msg.HopCount + 1
	fwd.PeerBloom = marshaled
	fwd.GetPath = path

	encoded := EncodeEnvelope(MessageKindGet, fwd.Encode())
	for _, e := range peers {
		if err := e.MQ.Send(encoded); err != nil {
			logger.Debug("get forward failed", "peer", e.PeerID, "error", err)
		}
	}
	return nil
}

// routeReply builds a RESULT for a local cache hit and sends it back along
// the requesting message's get_path (or delivers it locally if the path is
// already empty, meaning this router is the origin).
func (r *Router) routeReply(req *GetMessage, hit *types.Block) {
	result := &ResultMessage{
		Type:       hit.Type,
		Expiration: hit.Expiration,
		Key:        hit.Key,
		GetPath:    req.GetPath,
		Payload:    hit.Payload,
	}
	r.routeResultAlongPath(result)
}

// HandleResult processes an incoming RESULT, routing it one hop back
// toward the origin or delivering it to local requesters once the path is
// exhausted (spec.md §4.E "Reply routing").
func (r *Router) HandleResult(msg *ResultMessage) error {
	if !verifyPathContinuity(msg.GetPath) {
		logger.Warn("dropping RESULT with broken path signature chain", "key", msg.Key)
		return nil
	}
	r.routeResultAlongPath(msg)
	return nil
}

func (r *Router) routeResultAlongPath(msg *ResultMessage) {
	path := msg.GetPath
	if len(path) == 0 {
		r.deliverLocal(msg)
		return
	}
	next := path[len(path)-1]
	remaining := *msg
	remaining.GetPath = path[:len(path)-1]

	entry := r.table.Get(next.Peer)
	if entry == nil || entry.MQ.Closed() {
		logger.Debug("dropping RESULT, next hop unreachable", "peer", next.Peer)
		return
	}
	if err := entry.MQ.Send(EncodeEnvelope(MessageKindResult, remaining.Encode())); err != nil {
		logger.Debug("result forward failed", "peer", next.Peer, "error", err)
	}
}

func (r *Router) deliverLocal(msg *ResultMessage) {
	og, ok := r.outstanding.get(msg.Key)
	if !ok {
		return
	}
	v, known := r.validators.Get(msg.Type)
	block := &types.Block{Key: msg.Key, Type: msg.Type, Payload: msg.Payload, Expiration: msg.Expiration}

	og.mu.Lock()
	defer og.mu.Unlock()

	result := validator.ReplyIrrelevant
	if known {
		result = v.CheckReply(og.group, msg.Key, nil, block)
	}
	switch result {
	case validator.ReplyOKLast, validator.ReplyOKMore:
		for _, lr := range og.local {
			select {
			case lr.replyCh <- block:
			default:
			}
		}
		if result == validator.ReplyOKLast {
			r.outstanding.remove(msg.Key)
		}
	case validator.ReplyDuplicate:
		logger.Debug("suppressed duplicate local delivery", "key", msg.Key)
	}
}

// LocalGet returns blocks held in the local store for key/blockType without
// touching outstanding GET state or forwarding — a read-only accessor for
// diagnostics.
func (r *Router) LocalGet(key types.HashKey, blockType types.BlockType) []*types.Block {
	return r.blocks.Get(key, blockType, nil)
}

// RunSweeper starts a background goroutine reaping expired outstanding GET
// state every interval, matching the block store's sweep idiom.
func (r *Router) RunSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.outstanding.reapExpired(); n > 0 {
					logger.Debug("reaped expired outstanding GETs", "count", n)
				}
			case <-r.stopSweep:
				return
			}
		}
	}()
}

// Stop halts the background sweeper.
func (r *Router) Stop() {
	close(r.stopSweep)
}
