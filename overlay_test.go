package overlay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/internal/dht"
	"github.com/kademlia-dht/overlay/internal/namestore"
	"github.com/kademlia-dht/overlay/internal/store"
	"github.com/kademlia-dht/overlay/internal/zonemaster"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		IdentityPath: filepath.Join(dir, "identity.seed"),
		Store: store.Config{
			DataDir:  filepath.Join(dir, "blocks"),
			Capacity: 1024,
		},
		Router: dht.DefaultConfig(),
	}
}

func TestNewAssemblesWithoutError(t *testing.T) {
	node, err := New(testConfig(t))
	require.NoError(t, err)
	assert.NotEmpty(t, node.PeerID())
}

func TestStartStopRunsLifecycleHooks(t *testing.T) {
	node, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, node.Start(ctx))
	require.NoError(t, node.Stop(ctx))
}

func TestNewWithPublisherStartsAndStopsPublishing(t *testing.T) {
	zonePriv, zonePub, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)

	ns := namestore.NewInMemoryMonitor()
	var router *dht.Router
	node, err := NewWithPublisher(testConfig(t), ns, zonePriv, zonemaster.DefaultConfig(), fx.Populate(&router))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, node.Start(ctx))
	ns.Emit(namestore.ZoneEvent{
		Zone:  zonePub,
		Label: "www",
		Records: []namestore.Record{
			{Value: []byte("record-data"), Private: false, Expiration: time.Now().Add(time.Hour)},
		},
	})

	// With no peers connected the node's own table considers itself
	// closest to every key, so a correctly-signed block lands in the
	// local store: this would fail with ErrKeyMismatch if the publisher
	// signed with a key other than zonePriv.
	blockKey := crypto.DeriveBlockKey(zonePub, "www")
	require.Eventually(t, func() bool {
		return len(router.LocalGet(blockKey, types.BlockTypeUserBlock)) == 1
	}, time.Second, 5*time.Millisecond, "published zone block never landed in the local store")

	require.NoError(t, node.Stop(ctx))
}

func TestLoadOrCreateIdentityPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.seed")

	first, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)

	second, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)

	assert.Equal(t, first.Public().PeerID(), second.Public().PeerID())
}
