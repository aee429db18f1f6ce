package bloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerFilterContainsAfterAdd(t *testing.T) {
	f := NewPeerFilter()
	assert.False(t, f.Contains([]byte("peerA")))
	f.Add([]byte("peerA"))
	assert.True(t, f.Contains([]byte("peerA")))
	assert.False(t, f.Contains([]byte("peerB")))
}

func TestTestAndAddReportsPriorMembership(t *testing.T) {
	f := NewPeerFilter()
	assert.False(t, f.TestAndAdd([]byte("x")))
	assert.True(t, f.TestAndAdd([]byte("x")))
}

func TestReplyFilterMutatorChangesBitPattern(t *testing.T) {
	a := NewReplyFilter(100, 1)
	b := NewReplyFilter(100, 2)

	encodedA, err := a.MarshalBinary()
	require.NoError(t, err)
	encodedB, err := b.MarshalBinary()
	require.NoError(t, err)

	assert.NotEqual(t, encodedA, encodedB)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	f := NewReplyFilter(50, 7)
	f.Add([]byte("result-1"))

	encoded, err := f.MarshalBinary()
	require.NoError(t, err)

	restored, err := UnmarshalFilter(encoded)
	require.NoError(t, err)

	assert.True(t, restored.Contains([]byte("result-1")))
	assert.False(t, restored.Contains([]byte("result-2")))
}
