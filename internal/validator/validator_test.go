package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/internal/hello"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

func TestRegistryDispatchesKnownTypes(t *testing.T) {
	r := NewRegistry()
	for _, bt := range []types.BlockType{
		types.BlockTypeFSData, types.BlockTypeFSIndex,
		types.BlockTypeUserBlock, types.BlockTypeGNSRecord, types.BlockTypeHello,
	} {
		v, ok := r.Get(bt)
		require.True(t, ok)
		require.NotNil(t, v)
	}
}

func TestRegistryUnknownTypeUnsupported(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get(types.BlockType(99))
	require.False(t, ok)
}

func TestContentAddressedCheckBlockAcceptsMatchingKey(t *testing.T) {
	v := NewContentAddressedValidator(types.BlockTypeFSData)
	payload := []byte("file contents")
	key, err := v.DeriveKey(payload)
	require.NoError(t, err)

	b := &types.Block{Key: key, Type: types.BlockTypeFSData, Payload: payload, Expiration: time.Now().Add(time.Hour)}
	require.NoError(t, v.CheckBlock(b))
}

func TestContentAddressedCheckBlockRejectsMismatchedKey(t *testing.T) {
	v := NewContentAddressedValidator(types.BlockTypeFSData)
	b := &types.Block{Key: types.HashKey{}, Type: types.BlockTypeFSData, Payload: []byte("x"), Expiration: time.Now().Add(time.Hour)}
	require.ErrorIs(t, v.CheckBlock(b), ErrKeyMismatch)
}

func TestContentAddressedCheckReplyAlwaysOKLast(t *testing.T) {
	v := NewContentAddressedValidator(types.BlockTypeFSData)
	payload := []byte("data")
	key, _ := v.DeriveKey(payload)
	b := &types.Block{Key: key, Type: types.BlockTypeFSData, Payload: payload, Expiration: time.Now().Add(time.Hour)}
	require.Equal(t, ReplyOKLast, v.CheckReply(nil, key, nil, b))
}

func TestSignedZoneRoundTrip(t *testing.T) {
	priv, _, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)

	wire, err := EncodeSignedZoneBlock(priv, "www", []byte("A 192.0.2.1"))
	require.NoError(t, err)

	v := NewSignedZoneValidator(types.BlockTypeUserBlock)
	key, err := v.DeriveKey(wire)
	require.NoError(t, err)
	require.Equal(t, crypto.DeriveBlockKey(priv.Public(), "www"), key)

	b := &types.Block{Key: key, Type: types.BlockTypeUserBlock, Payload: wire, Expiration: time.Now().Add(time.Hour)}
	require.NoError(t, v.CheckBlock(b))
}

func TestSignedZoneRejectsTamperedPayload(t *testing.T) {
	priv, _, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)

	wire, err := EncodeSignedZoneBlock(priv, "www", []byte("A 192.0.2.1"))
	require.NoError(t, err)
	wire[len(wire)-1] ^= 0xff

	v := NewSignedZoneValidator(types.BlockTypeUserBlock)
	key, err := v.DeriveKey(wire)
	require.NoError(t, err)
	b := &types.Block{Key: key, Type: types.BlockTypeUserBlock, Payload: wire, Expiration: time.Now().Add(time.Hour)}
	require.ErrorIs(t, v.CheckBlock(b), ErrInvalidSignature)
}

func TestSignedZoneCheckReplyDeduplicates(t *testing.T) {
	priv, _, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)
	wire, err := EncodeSignedZoneBlock(priv, "www", []byte("A 192.0.2.1"))
	require.NoError(t, err)

	v := NewSignedZoneValidator(types.BlockTypeUserBlock)
	key, err := v.DeriveKey(wire)
	require.NoError(t, err)
	b := &types.Block{Key: key, Type: types.BlockTypeUserBlock, Payload: wire, Expiration: time.Now().Add(time.Hour)}

	group := v.CreateGroup(8, 0)
	require.Equal(t, ReplyOKMore, v.CheckReply(group, key, nil, b))
	require.Equal(t, ReplyDuplicate, v.CheckReply(group, key, nil, b))
}

func TestHelloValidatorDeriveKeyMatchesPeerIDHash(t *testing.T) {
	priv, pub, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)
	d, err := hello.Build(priv, []string{"tcp://198.51.100.1:4001"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	v := NewHelloValidator()
	key, err := v.DeriveKey(d.Bytes())
	require.NoError(t, err)
	require.Equal(t, crypto.PeerIDHash(pub), key)

	b := &types.Block{Key: key, Type: types.BlockTypeHello, Payload: d.Bytes(), Expiration: d.Expiration}
	require.NoError(t, v.CheckBlock(b))
}
