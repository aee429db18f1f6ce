package dht

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

func TestEncodeDecodeEnvelopeRoundTrip(t *testing.T) {
	msg := &GetMessage{Type: types.BlockTypeFSData, Key: crypto.Hash([]byte("k")), XQuery: []byte("q")}
	envelope := EncodeEnvelope(MessageKindGet, msg.Encode())

	kind, body, err := DecodeEnvelope(envelope)
	require.NoError(t, err)
	require.Equal(t, MessageKindGet, kind)

	decoded, err := DecodeGetMessage(body)
	require.NoError(t, err)
	require.Equal(t, msg.Key, decoded.Key)
	require.Equal(t, msg.XQuery, decoded.XQuery)
}

func TestDecodeEnvelopeShortBuffer(t *testing.T) {
	_, _, err := DecodeEnvelope([]byte{0x01})
	require.Error(t, err)
}

func TestRouterDispatchRoutesByKind(t *testing.T) {
	r, _, _ := newTestRouter(t)

	payload := []byte("dispatch-payload")
	key := crypto.Hash(payload)
	put := &PutMessage{
		Type:               types.BlockTypeFSData,
		DesiredReplication: 1,
		Expiration:         time.Now().Add(time.Hour),
		Key:                key,
		Payload:            payload,
	}
	require.NoError(t, r.Dispatch(EncodeEnvelope(MessageKindPut, put.Encode())))

	hits := r.blocks.Get(key, types.BlockTypeFSData, nil)
	require.Len(t, hits, 1)
	require.Equal(t, payload, hits[0].Payload)
}

func TestRouterDispatchUnknownKind(t *testing.T) {
	r, _, _ := newTestRouter(t)
	err := r.Dispatch(EncodeEnvelope(MessageKind(99), nil))
	require.Error(t, err)
}
