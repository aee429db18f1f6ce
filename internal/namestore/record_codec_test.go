package namestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRecordSetRoundTrip(t *testing.T) {
	records := []Record{
		{Value: []byte("A 203.0.113.1"), Expiration: time.Now().Add(time.Hour).Truncate(time.Microsecond)},
		{Value: []byte("AAAA ::1"), Expiration: time.Now().Add(2 * time.Hour).Truncate(time.Microsecond)},
	}
	encoded := EncodeRecordSet(records)
	decoded, err := DecodeRecordSet(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range records {
		require.Equal(t, records[i].Value, decoded[i].Value)
		require.True(t, records[i].Expiration.Equal(decoded[i].Expiration))
	}
}

func TestDecodeRecordSetRejectsTruncatedBuffer(t *testing.T) {
	_, err := DecodeRecordSet([]byte{0, 1})
	require.Error(t, err)
}

func TestLatestExpirationPicksMax(t *testing.T) {
	earlier := time.Now()
	later := earlier.Add(time.Hour)
	records := []Record{{Expiration: earlier}, {Expiration: later}, {Expiration: earlier}}
	require.True(t, LatestExpiration(records).Equal(later))
}
