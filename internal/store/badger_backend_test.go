package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/pkg/types"
)

func newTestBackend(t *testing.T) *BadgerBackend {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "blocks.db")
	b, err := NewBadgerBackend(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBadgerBackendPersistAndLoadAll(t *testing.T) {
	backend := newTestBackend(t)

	var k types.HashKey
	k[0] = 7
	blk := &types.Block{Key: k, Type: types.BlockTypeFSData, Payload: []byte("x"), Expiration: time.Now().Add(time.Hour)}
	require.NoError(t, backend.Persist(blk))

	loaded, err := backend.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, blk.Key, loaded[0].Key)
	require.Equal(t, blk.Payload, loaded[0].Payload)
}

func TestBadgerBackendLoadAllSkipsExpired(t *testing.T) {
	backend := newTestBackend(t)

	var k types.HashKey
	k[0] = 9
	blk := &types.Block{Key: k, Type: types.BlockTypeFSData, Payload: []byte("x"), Expiration: time.Now().Add(-time.Hour)}
	require.NoError(t, backend.Persist(blk))

	loaded, err := backend.LoadAll()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestBadgerBackendDelete(t *testing.T) {
	backend := newTestBackend(t)

	var k types.HashKey
	k[0] = 3
	blk := &types.Block{Key: k, Type: types.BlockTypeFSData, Payload: []byte("x"), Expiration: time.Now().Add(time.Hour)}
	require.NoError(t, backend.Persist(blk))
	require.NoError(t, backend.Delete(k))

	loaded, err := backend.LoadAll()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestStoreWithBadgerBackendRepopulatesOnOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "blocks.db")
	backend, err := NewBadgerBackend(dbPath)
	require.NoError(t, err)

	var local types.HashKey
	var k types.HashKey
	k[0] = 5
	s, err := New(local, 10, backend)
	require.NoError(t, err)
	s.Put(&types.Block{Key: k, Type: types.BlockTypeFSData, Payload: []byte("x"), Expiration: time.Now().Add(time.Hour)})
	require.NoError(t, backend.Close())

	backend2, err := NewBadgerBackend(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { backend2.Close() })

	s2, err := New(local, 10, backend2)
	require.NoError(t, err)
	require.Equal(t, 1, s2.Size())
}
