package hello

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kademlia-dht/overlay/pkg/crypto"
)

func testIdentity(t *testing.T) crypto.PrivateKey {
	t.Helper()
	priv, _, err := crypto.GenerateIdentity(nil)
	require.NoError(t, err)
	return priv
}

func TestBuildParseBytesRoundTrip(t *testing.T) {
	priv := testIdentity(t)
	addrs := []string{"tcp://198.51.100.1:4001", "quic://198.51.100.1:4002"}
	exp := time.Now().Add(time.Hour)

	d, err := Build(priv, addrs, exp)
	require.NoError(t, err)

	parsed, err := ParseBytes(d.Bytes())
	require.NoError(t, err)
	require.True(t, d.Equals(parsed))
}

func TestBuildParseURLRoundTrip(t *testing.T) {
	priv := testIdentity(t)
	addrs := []string{"tcp://198.51.100.1:4001", "quic://198.51.100.1:4002"}
	exp := time.Now().Add(time.Hour)

	d, err := Build(priv, addrs, exp)
	require.NoError(t, err)

	parsed, err := ParseURL(d.URL(), true)
	require.NoError(t, err)
	require.True(t, d.Equals(parsed))
}

func TestBytesAndURLAgree(t *testing.T) {
	priv := testIdentity(t)
	addrs := []string{"tcp://198.51.100.1:4001"}
	exp := time.Now().Add(time.Hour)

	d, err := Build(priv, addrs, exp)
	require.NoError(t, err)

	fromBytes, err := ParseBytes(d.Bytes())
	require.NoError(t, err)
	fromURL, err := ParseURL(d.URL(), true)
	require.NoError(t, err)
	require.True(t, fromBytes.Equals(fromURL))
}

func TestBuildDeduplicatesAddresses(t *testing.T) {
	priv := testIdentity(t)
	addrs := []string{"tcp://a", "tcp://b", "tcp://a"}
	exp := time.Now().Add(time.Hour)

	d, err := Build(priv, addrs, exp)
	require.NoError(t, err)
	require.Len(t, d.Addresses, 2)
	require.Equal(t, "tcp://a", d.Addresses[0].URI())
	require.Equal(t, "tcp://b", d.Addresses[1].URI())
}

func TestParseBytesRejectsExpired(t *testing.T) {
	priv := testIdentity(t)
	d, err := Build(priv, []string{"tcp://a"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseBytes(d.Bytes())
	require.ErrorIs(t, err, ErrExpired)
}

func TestParseURLAllowsExpiredWhenNotChecked(t *testing.T) {
	priv := testIdentity(t)
	d, err := Build(priv, []string{"tcp://a"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	parsed, err := ParseURL(d.URL(), false)
	require.NoError(t, err)
	require.True(t, d.Equals(parsed))
}

func TestParseBytesRejectsTamperedSignature(t *testing.T) {
	priv := testIdentity(t)
	d, err := Build(priv, []string{"tcp://a"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	buf := d.Bytes()
	buf[40] ^= 0xff // flip a byte inside the signature field
	_, err = ParseBytes(buf)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseBytesRejectsShortBuffer(t *testing.T) {
	_, err := ParseBytes([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformedWire)
}

func TestParseURLRejectsBadPrefix(t *testing.T) {
	_, err := ParseURL("http://example.com", true)
	require.ErrorIs(t, err, ErrMalformedWire)
}

func TestBuildRejectsTooManyAddresses(t *testing.T) {
	priv := testIdentity(t)
	addrs := make([]string, maxAddresses+1)
	for i := range addrs {
		addrs[i] = "tcp://a"
	}
	_, err := Build(priv, addrs, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrTooManyAddresses)
}

func TestBuildRejectsMalformedAddress(t *testing.T) {
	priv := testIdentity(t)
	_, err := Build(priv, []string{"not-a-valid-address"}, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrMalformedAddress)
}
