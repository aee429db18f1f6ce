package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/pkg/types"
)

func keyAtDistance(t *testing.T, local types.HashKey, leadingZeroBits int) types.HashKey {
	t.Helper()
	k := local
	byteIdx := leadingZeroBits / 8
	bitIdx := leadingZeroBits % 8
	if byteIdx >= len(k) {
		return k
	}
	k[byteIdx] ^= 0x80 >> bitIdx
	return k
}

func block(key types.HashKey, exp time.Time) *types.Block {
	return &types.Block{Key: key, Type: types.BlockTypeFSData, Payload: []byte("payload"), Expiration: exp}
}

func TestPutGetRoundTrip(t *testing.T) {
	var local types.HashKey
	s, err := New(local, 10, nil)
	require.NoError(t, err)

	k := keyAtDistance(t, local, 5)
	b := block(k, time.Now().Add(time.Hour))
	s.Put(b)

	got := s.Get(k, types.BlockTypeAny, nil)
	require.Len(t, got, 1)
	require.Equal(t, b.Payload, got[0].Payload)
}

func TestGetSkipsExpired(t *testing.T) {
	var local types.HashKey
	s, err := New(local, 10, nil)
	require.NoError(t, err)

	k := keyAtDistance(t, local, 5)
	s.Put(block(k, time.Now().Add(-time.Minute)))

	got := s.Get(k, types.BlockTypeAny, nil)
	require.Empty(t, got)
}

func TestCacheOverflowEvictsFarthest(t *testing.T) {
	var local types.HashKey
	s, err := New(local, 2, nil)
	require.NoError(t, err)

	near := keyAtDistance(t, local, 50) // many leading zero bits = close
	mid := keyAtDistance(t, local, 10)
	far := keyAtDistance(t, local, 1) // few leading zero bits = far

	s.Put(block(near, time.Now().Add(time.Hour)))
	s.Put(block(mid, time.Now().Add(time.Hour)))
	require.Equal(t, 2, s.Size())

	s.Put(block(far, time.Now().Add(time.Hour)))
	require.Equal(t, 2, s.Size())

	require.NotEmpty(t, s.Get(near, types.BlockTypeAny, nil))
	require.NotEmpty(t, s.Get(mid, types.BlockTypeAny, nil))
}

func TestGetClosestOrdersByXORDistance(t *testing.T) {
	var local types.HashKey
	s, err := New(local, 10, nil)
	require.NoError(t, err)

	near := keyAtDistance(t, local, 50)
	mid := keyAtDistance(t, local, 10)
	far := keyAtDistance(t, local, 1)
	s.Put(block(near, time.Now().Add(time.Hour)))
	s.Put(block(mid, time.Now().Add(time.Hour)))
	s.Put(block(far, time.Now().Add(time.Hour)))

	closest := s.GetClosest(local, types.BlockTypeAny, 2)
	require.Len(t, closest, 2)
	require.Equal(t, near, closest[0].Key)
	require.Equal(t, mid, closest[1].Key)
}

func TestSweepExpiredRemovesEmptyEntries(t *testing.T) {
	var local types.HashKey
	s, err := New(local, 10, nil)
	require.NoError(t, err)

	k := keyAtDistance(t, local, 5)
	s.Put(block(k, time.Now().Add(-time.Minute)))
	require.Equal(t, 1, s.Size())

	removed := s.SweepExpired()
	require.Equal(t, 1, removed)
	require.Equal(t, 0, s.Size())
}
