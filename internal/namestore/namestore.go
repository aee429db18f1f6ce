// Package namestore specifies the external record-store collaborator the
// zone-master publisher (internal/zonemaster) depends on. Per spec.md §1
// ("The authoritative record store itself (Namestore) — we specify only
// the monitor contract it offers"), only the interface and an in-memory
// test double live here; no production-backed implementation.
package namestore

import (
	"time"

	"github.com/kademlia-dht/overlay/pkg/crypto"
)

// Record is one resource record within a label's record set.
type Record struct {
	Value      []byte
	Private    bool
	Expiration time.Time
}

// ZoneEvent is one zone-monitor notification: the full current record set
// for {zone, label} (spec.md §4.G: "records in {zone, label} -> vector<rd>
// format").
type ZoneEvent struct {
	Zone    crypto.PublicKey
	Label   string
	Records []Record
}

// Handle cancels an active zone monitor subscription.
type Handle interface {
	Cancel()
}

// Monitor is the namestore collaborator contract (spec.md §6 "Publisher ->
// Namestore"): a credit-flow-controlled zone event stream plus a record
// write-back path used to refresh tombstones.
type Monitor interface {
	// Monitor subscribes to zone's record-set stream. eventCB fires once per
	// {zone, label} change (after includeHistory replay, if requested);
	// errorCB fires on a fatal monitor fault; syncCB fires once the replay of
	// pre-existing state completes.
	Monitor(zone crypto.PublicKey, includeHistory bool, eventCB func(ZoneEvent), errorCB func(error), syncCB func()) (Handle, error)
	// MonitorNext grants credit additional events may be delivered before the
	// subscriber must call this again (spec.md §4.G's NAMESTORE_QUEUE_LIMIT
	// credit window).
	MonitorNext(h Handle, credit int)
	// RecordsStore writes label's record set for zone, invoking continuation
	// with the outcome. Used by the publisher to write/refresh tombstones.
	RecordsStore(zone crypto.PublicKey, label string, records []Record, continuation func(error))
}
