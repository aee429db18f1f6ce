// Package zonemaster is the zone-master publisher (spec.md §4.G): it
// mirrors freshly-changed, non-private namestore record sets into the DHT
// as signed blocks, bounding the number of simultaneously in-flight PUTs
// and suppressing redundant republication via a tombstone map. Grounded on
// dep2p-go-dep2p's internal/discovery/dht/local_record_manager.go
// (mutex-guarded seq/republish bookkeeping, "needs republish" decision
// shape) generalized from a single local peer record to one record set per
// {zone, label}, and internal/realm/* for treating a zone public key as a
// cryptographic namespace.
package zonemaster

import (
	"container/list"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/kademlia-dht/overlay/internal/namestore"
	"github.com/kademlia-dht/overlay/internal/validator"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/log"
	"github.com/kademlia-dht/overlay/pkg/types"
)

var logger = log.Logger("zonemaster")

// Putter is the narrow DHT collaborator the publisher depends on (spec.md
// §6 "Publisher -> DHT": put(key, type, data, expiration, replication,
// options) -> handle). *dht.Router satisfies this without either package
// importing the other.
type Putter interface {
	Put(blockType types.BlockType, key types.HashKey, payload []byte, expiration time.Time, desiredReplication uint32, options types.RouteOptions) error
}

// inflight tracks one PUT dispatched but not yet completed.
type inflight struct {
	id        uuid.UUID
	label     string
	cancelled bool
}

// Publisher implements spec.md §4.G's namestore-monitor-to-DHT-PUT pipeline.
type Publisher struct {
	ns  namestore.Monitor
	put Putter
	// priv is the zone's own private key, not the node's identity key:
	// every block is signed with it, and Run's caller must derive the
	// zone's public key from the same keypair (priv.Public()) so the
	// embedded signer and the DHT key agree.
	priv crypto.PrivateKey
	cfg  Config

	mu         sync.Mutex
	handle     namestore.Handle
	tombstones map[string]time.Time
	byID       map[uuid.UUID]*list.Element // id -> node in order, value *inflight
	order      *list.List
}

// NewPublisher wires a publisher from its collaborators.
func NewPublisher(ns namestore.Monitor, put Putter, priv crypto.PrivateKey, cfg Config) *Publisher {
	return &Publisher{
		ns:         ns,
		put:        put,
		priv:       priv,
		cfg:        cfg,
		tombstones: make(map[string]time.Time),
		byID:       make(map[uuid.UUID]*list.Element),
		order:      list.New(),
	}
}

// tombstoneKey derives a compact map key for {zone, label}. This is purely
// an internal bookkeeping key, never the DHT block key itself (that stays
// SHA-512 via crypto.DeriveBlockKey), so it uses blake2b-256 rather than the
// protocol-critical hash — matching the pack's convention of reserving a
// lighter-weight hash for non-wire-format internal identifiers.
func tombstoneKey(zone crypto.PublicKey, label string) string {
	h := blake2b.Sum256(append(zone.Bytes(), []byte("/"+label)...))
	return hex.EncodeToString(h[:])
}

// Run subscribes to zone's record-set stream and begins publishing changes.
func (p *Publisher) Run(zone crypto.PublicKey) error {
	p.mu.Lock()
	if p.handle != nil {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.mu.Unlock()

	h, err := p.ns.Monitor(zone, false,
		func(ev namestore.ZoneEvent) { p.handleEvent(zone, ev) },
		func(err error) { logger.Warn("namestore monitor error", "error", err) },
		func() {},
	)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()
	p.ns.MonitorNext(h, p.cfg.MonitorCredit)
	return nil
}

// Stop cancels the active monitor subscription, if any.
func (p *Publisher) Stop() {
	p.mu.Lock()
	h := p.handle
	p.handle = nil
	p.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// InFlightCount reports the number of PUTs currently admitted and not yet
// completed or evicted, for testable property #8.
func (p *Publisher) InFlightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// admit registers a new in-flight PUT, evicting (cancelling, not retrying)
// the oldest entry if the queue is already at DHTQueueLimit capacity
// (spec.md §4.G: "the publisher keeps at most DHT_QUEUE_LIMIT PUTs in
// flight; when the cap is hit, the oldest in-flight PUT is cancelled").
func (p *Publisher) admit(label string) *inflight {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.order.Len() >= p.cfg.QueueLimit {
		front := p.order.Front()
		oldest := front.Value.(*inflight)
		oldest.cancelled = true
		p.order.Remove(front)
		delete(p.byID, oldest.id)
		logger.Warn("in-flight PUT queue at capacity, cancelling oldest", "label", oldest.label)
	}

	f := &inflight{id: uuid.New(), label: label}
	elem := p.order.PushBack(f)
	p.byID[f.id] = elem
	return f
}

// complete removes f from the in-flight queue, reporting whether it had
// already been cancelled by a capacity eviction.
func (p *Publisher) complete(f *inflight) (wasCancelled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if elem, ok := p.byID[f.id]; ok {
		p.order.Remove(elem)
		delete(p.byID, f.id)
	}
	return f.cancelled
}

// handleEvent processes one zone-monitor notification per spec.md §4.G's
// five-step algorithm.
func (p *Publisher) handleEvent(zone crypto.PublicKey, ev namestore.ZoneEvent) {
	defer p.ns.MonitorNext(p.handle, 1)

	now := time.Now()
	public := make([]namestore.Record, 0, len(ev.Records))
	for _, r := range ev.Records {
		if r.Private {
			continue
		}
		if !r.Expiration.After(now) {
			continue
		}
		public = append(public, r)
	}
	if len(public) == 0 {
		logger.Debug("zone event has no publishable records", "label", ev.Label)
		return
	}

	expiration := namestore.LatestExpiration(public)

	tkey := tombstoneKey(zone, ev.Label)
	p.mu.Lock()
	deathTime, tombstoned := p.tombstones[tkey]
	p.mu.Unlock()
	if tombstoned && !deathTime.Before(expiration) {
		logger.Debug("skipping publish, tombstone still authoritative", "label", ev.Label)
		return
	}

	recordData := namestore.EncodeRecordSet(public)
	blockBytes, err := validator.EncodeSignedZoneBlock(p.priv, ev.Label, recordData)
	if err != nil {
		logger.Warn("failed to build signed zone block", "label", ev.Label, "error", err)
		return
	}
	key := crypto.DeriveBlockKey(zone, ev.Label)

	f := p.admit(ev.Label)
	go p.dispatchPut(f, zone, ev.Label, key, blockBytes, expiration, tkey)
}

// dispatchPut runs the PUT and, unless f was cancelled by a capacity
// eviction while in flight, refreshes the tombstone on success. Runs on its
// own goroutine so several PUTs can be genuinely in flight at once, which
// is what admit's capacity bound polices (spec.md §4.G, testable property
// #8).
func (p *Publisher) dispatchPut(f *inflight, zone crypto.PublicKey, label string, key types.HashKey, blockBytes []byte, expiration time.Time, tkey string) {
	err := p.put.Put(types.BlockTypeUserBlock, key, blockBytes, expiration, p.cfg.Replication, types.RouteOptionDemultiplexEverywhere)
	cancelled := p.complete(f)
	if cancelled {
		logger.Debug("PUT completed after capacity cancellation, discarding", "label", label)
		return
	}
	if err != nil {
		logger.Warn("zone block PUT failed", "label", label, "error", err)
		return
	}

	p.mu.Lock()
	p.tombstones[tkey] = expiration
	p.mu.Unlock()

	tombstoneLabel := label + "\x00tombstone"
	p.ns.RecordsStore(zone, tombstoneLabel, []namestore.Record{{Expiration: expiration}}, func(err error) {
		if err != nil {
			logger.Warn("tombstone refresh failed", "label", label, "error", err)
		}
	})
}
