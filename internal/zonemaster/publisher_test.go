package zonemaster

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/internal/namestore"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// fakePutter records every PUT it receives and can optionally block until
// released, letting tests hold several PUTs in flight at once.
type fakePutter struct {
	mu    sync.Mutex
	puts  []types.HashKey
	block chan struct{} // if non-nil, Put waits on it before returning
}

func (p *fakePutter) Put(_ types.BlockType, key types.HashKey, _ []byte, _ time.Time, _ uint32, _ types.RouteOptions) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.puts = append(p.puts, key)
	p.mu.Unlock()
	return nil
}

func (p *fakePutter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.puts)
}

func newTestPublisher(t *testing.T, cfg Config) (*Publisher, *namestore.InMemoryMonitor, *fakePutter, crypto.PublicKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)
	ns := namestore.NewInMemoryMonitor()
	putter := &fakePutter{}
	return NewPublisher(ns, putter, priv, cfg), ns, putter, pub
}

func TestPublisherPublishesNonPrivateRecords(t *testing.T) {
	p, ns, putter, zone := newTestPublisher(t, DefaultConfig())
	require.NoError(t, p.Run(zone))

	ns.Emit(namestore.ZoneEvent{
		Zone:  zone,
		Label: "www",
		Records: []namestore.Record{
			{Value: []byte("A 1.2.3.4"), Expiration: time.Now().Add(time.Hour)},
		},
	})

	require.Eventually(t, func() bool { return putter.count() == 1 }, time.Second, time.Millisecond)
}

func TestPublisherSkipsPrivateAndExpiredRecords(t *testing.T) {
	p, ns, putter, zone := newTestPublisher(t, DefaultConfig())
	require.NoError(t, p.Run(zone))

	ns.Emit(namestore.ZoneEvent{
		Zone:  zone,
		Label: "secret",
		Records: []namestore.Record{
			{Value: []byte("private"), Private: true, Expiration: time.Now().Add(time.Hour)},
			{Value: []byte("stale"), Expiration: time.Now().Add(-time.Hour)},
		},
	})

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, putter.count())
}

func TestPublisherTombstoneSkipsRedundantPublish(t *testing.T) {
	p, ns, putter, zone := newTestPublisher(t, DefaultConfig())
	require.NoError(t, p.Run(zone))

	exp := time.Now().Add(time.Hour)
	event := namestore.ZoneEvent{
		Zone:  zone,
		Label: "www",
		Records: []namestore.Record{
			{Value: []byte("A 1.2.3.4"), Expiration: exp},
		},
	}

	ns.Emit(event)
	require.Eventually(t, func() bool { return putter.count() == 1 }, time.Second, time.Millisecond)

	_, stored := ns.StoredRecords(zone, "www\x00tombstone")
	require.True(t, stored)

	ns.Emit(event)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, putter.count(), "second identical event must not trigger another PUT")
}

func TestPublisherQueueCapEvictsOldestInFlightPut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueLimit = 2
	p, ns, putter, zone := newTestPublisher(t, cfg)
	putter.block = make(chan struct{})
	require.NoError(t, p.Run(zone))

	for i := 0; i < 3; i++ {
		ns.Emit(namestore.ZoneEvent{
			Zone:  zone,
			Label: labelFor(i),
			Records: []namestore.Record{
				{Value: []byte("A 1.2.3.4"), Expiration: time.Now().Add(time.Hour)},
			},
		})
		ns.MonitorNext(mustHandle(t, p), 1)
	}

	require.Eventually(t, func() bool { return p.InFlightCount() <= cfg.QueueLimit }, time.Second, time.Millisecond)
	close(putter.block)
}

func labelFor(i int) string {
	return string(rune('a' + i))
}

// mustHandle is a test-only accessor for the publisher's live monitor
// handle, used to grant extra namestore credit between rapid-fire Emits.
func mustHandle(t *testing.T, p *Publisher) namestore.Handle {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotNil(t, p.handle)
	return p.handle
}
