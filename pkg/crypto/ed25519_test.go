package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/pkg/types"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, pub, err := GenerateIdentity(nil)
	require.NoError(t, err)

	payload := []byte("hello overlay")
	sig, err := Sign(priv, types.SigPurposeHello, payload)
	require.NoError(t, err)
	require.NoError(t, Verify(pub, types.SigPurposeHello, payload, sig))
}

func TestVerifyFailsOnWrongPurpose(t *testing.T) {
	priv, pub, err := GenerateIdentity(nil)
	require.NoError(t, err)

	payload := []byte("hello overlay")
	sig, err := Sign(priv, types.SigPurposeHello, payload)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(pub, types.SigPurposeUserBlock, payload, sig), ErrInvalidSignature)
}

func TestVerifyFailsOnTamperedPayload(t *testing.T) {
	priv, pub, err := GenerateIdentity(nil)
	require.NoError(t, err)

	sig, err := Sign(priv, types.SigPurposeHello, []byte("original"))
	require.NoError(t, err)
	require.ErrorIs(t, Verify(pub, types.SigPurposeHello, []byte("tampered"), sig), ErrInvalidSignature)
}

func TestXORIdentityIffEqual(t *testing.T) {
	var a, b types.HashKey
	a[0] = 1
	b[0] = 1
	require.Equal(t, uint32(types.HashKeySize*8), LeadingZeroBits(XOR(a, b)))

	b[0] = 2
	require.NotEqual(t, uint32(types.HashKeySize*8), LeadingZeroBits(XOR(a, b)))
}

func TestXORSymmetric(t *testing.T) {
	a := Hash([]byte("a"))
	b := Hash([]byte("b"))
	require.Equal(t, XOR(a, b), XOR(b, a))
}

func TestDeriveBlockKeyDeterministic(t *testing.T) {
	_, pub, err := GenerateIdentity(nil)
	require.NoError(t, err)

	k1 := DeriveBlockKey(pub, "label")
	k2 := DeriveBlockKey(pub, "label")
	require.Equal(t, k1, k2)

	k3 := DeriveBlockKey(pub, "other-label")
	require.NotEqual(t, k1, k3)
}
