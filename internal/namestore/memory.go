package namestore

import (
	"sync"

	"github.com/kademlia-dht/overlay/pkg/crypto"
)

// memoryHandle cancels a subscription on an InMemoryMonitor.
type memoryHandle struct {
	m    *InMemoryMonitor
	zone string
}

func (h *memoryHandle) Cancel() {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	delete(h.m.subs, h.zone)
}

type subscription struct {
	eventCB func(ZoneEvent)
	credit  int
	pending []ZoneEvent
}

// InMemoryMonitor is a test double for Monitor: Emit pushes a zone event to
// any active subscriber, respecting the credit window exactly like a real
// namestore would (events beyond the outstanding credit queue until
// MonitorNext grants more).
type InMemoryMonitor struct {
	mu      sync.Mutex
	subs    map[string]*subscription
	records map[string][]Record // "zone|label" -> stored record set
}

// NewInMemoryMonitor creates an empty in-memory namestore double.
func NewInMemoryMonitor() *InMemoryMonitor {
	return &InMemoryMonitor{
		subs:    make(map[string]*subscription),
		records: make(map[string][]Record),
	}
}

func zoneKey(zone crypto.PublicKey) string {
	return string(zone.Bytes())
}

func recordKey(zone crypto.PublicKey, label string) string {
	return zoneKey(zone) + "|" + label
}

// Monitor implements Monitor.
func (m *InMemoryMonitor) Monitor(zone crypto.PublicKey, _ bool, eventCB func(ZoneEvent), _ func(error), syncCB func()) (Handle, error) {
	m.mu.Lock()
	m.subs[zoneKey(zone)] = &subscription{eventCB: eventCB}
	m.mu.Unlock()
	if syncCB != nil {
		syncCB()
	}
	return &memoryHandle{m: m, zone: zoneKey(zone)}, nil
}

// MonitorNext implements Monitor: grants credit and flushes any events that
// were queued while credit was exhausted.
func (m *InMemoryMonitor) MonitorNext(h Handle, credit int) {
	mh, ok := h.(*memoryHandle)
	if !ok {
		return
	}
	m.mu.Lock()
	sub, ok := m.subs[mh.zone]
	if !ok {
		m.mu.Unlock()
		return
	}
	sub.credit += credit
	var toDeliver []ZoneEvent
	for sub.credit > 0 && len(sub.pending) > 0 {
		toDeliver = append(toDeliver, sub.pending[0])
		sub.pending = sub.pending[1:]
		sub.credit--
	}
	cb := sub.eventCB
	m.mu.Unlock()

	for _, ev := range toDeliver {
		cb(ev)
	}
}

// RecordsStore implements Monitor: writes the record set and invokes
// continuation synchronously with nil (the in-memory double never fails).
func (m *InMemoryMonitor) RecordsStore(zone crypto.PublicKey, label string, records []Record, continuation func(error)) {
	m.mu.Lock()
	m.records[recordKey(zone, label)] = records
	m.mu.Unlock()
	if continuation != nil {
		continuation(nil)
	}
}

// StoredRecords returns the record set last written via RecordsStore for
// {zone, label}, for test assertions.
func (m *InMemoryMonitor) StoredRecords(zone crypto.PublicKey, label string) ([]Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordKey(zone, label)]
	return r, ok
}

// Emit delivers ev to zone's subscriber if one is registered, queuing it if
// the subscriber's credit is currently exhausted.
func (m *InMemoryMonitor) Emit(ev ZoneEvent) {
	m.mu.Lock()
	sub, ok := m.subs[zoneKey(ev.Zone)]
	if !ok {
		m.mu.Unlock()
		return
	}
	if sub.credit <= 0 {
		sub.pending = append(sub.pending, ev)
		m.mu.Unlock()
		return
	}
	sub.credit--
	cb := sub.eventCB
	m.mu.Unlock()
	cb(ev)
}
