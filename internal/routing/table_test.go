package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/pkg/bloom"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

type stubMQ struct{ closed bool }

func (s *stubMQ) Send([]byte) error { return nil }
func (s *stubMQ) Closed() bool      { return s.closed }

func genPeer(t *testing.T) types.PeerID {
	t.Helper()
	_, pub, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)
	return pub.PeerID()
}

func TestPeerConnectedDisconnected(t *testing.T) {
	local := genPeer(t)
	rt := NewTable(local)

	peer := genPeer(t)
	require.True(t, rt.PeerConnected(peer, &stubMQ{}))
	require.Equal(t, 1, rt.Size())

	rt.PeerDisconnected(peer)
	require.Equal(t, 0, rt.Size())
}

func TestPeerConnectedRejectsSelf(t *testing.T) {
	local := genPeer(t)
	rt := NewTable(local)
	require.False(t, rt.PeerConnected(local, &stubMQ{}))
	require.Equal(t, 0, rt.Size())
}

func TestClosestPeersOrdersByXORDistance(t *testing.T) {
	local := genPeer(t)
	rt := NewTable(local)

	peers := make([]types.PeerID, 5)
	for i := range peers {
		peers[i] = genPeer(t)
		require.True(t, rt.PeerConnected(peers[i], &stubMQ{}))
	}

	target := genPeer(t)
	targetHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(target))
	closest := rt.ClosestPeers(targetHash, 3, nil)
	require.Len(t, closest, 3)

	for i := 1; i < len(closest); i++ {
		require.False(t, crypto.Less(closest[i].Hash, closest[i-1].Hash, targetHash))
	}
}

func TestClosestPeersSkipsExcluded(t *testing.T) {
	local := genPeer(t)
	rt := NewTable(local)

	a := genPeer(t)
	b := genPeer(t)
	require.True(t, rt.PeerConnected(a, &stubMQ{}))
	require.True(t, rt.PeerConnected(b, &stubMQ{}))

	excluded := bloom.NewPeerFilter()
	excluded.Add(a[:])

	target := genPeer(t)
	targetHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(target))
	closest := rt.ClosestPeers(targetHash, 5, excluded)
	for _, e := range closest {
		require.NotEqual(t, a, e.PeerID)
	}
}

func TestAmClosestTrueWhenTableEmpty(t *testing.T) {
	local := genPeer(t)
	rt := NewTable(local)
	target := genPeer(t)
	targetHash := crypto.PeerIDHash(crypto.PublicKeyFromPeerID(target))
	require.True(t, rt.AmClosest(targetHash, nil))
}

func TestHoldDropCounts(t *testing.T) {
	local := genPeer(t)
	rt := NewTable(local)
	peer := genPeer(t)

	require.Equal(t, 1, rt.Hold(peer))
	require.Equal(t, 2, rt.Hold(peer))
	require.Equal(t, 1, rt.Drop(peer))
	require.Equal(t, 0, rt.Drop(peer))
	require.Equal(t, 0, rt.HoldCount(peer))
}
