package namestore

import (
	"encoding/binary"
	"fmt"
	"time"
)

// EncodeRecordSet serializes a public projection of records (already
// filtered of private entries) into the recordData bytes the zone-master
// publisher signs via validator.EncodeSignedZoneBlock. Layout: count(u16),
// then per record: expiration_micros(u64) | value_len(u32) | value.
func EncodeRecordSet(records []Record) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(records)))
	for _, r := range records {
		head := make([]byte, 12)
		binary.BigEndian.PutUint64(head[0:8], uint64(r.Expiration.UnixMicro()))
		binary.BigEndian.PutUint32(head[8:12], uint32(len(r.Value)))
		out = append(out, head...)
		out = append(out, r.Value...)
	}
	return out
}

// DecodeRecordSet parses the layout EncodeRecordSet produces.
func DecodeRecordSet(buf []byte) ([]Record, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("namestore: short record set (%d bytes)", len(buf))
	}
	count := int(binary.BigEndian.Uint16(buf))
	off := 2
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		if len(buf)-off < 12 {
			return nil, fmt.Errorf("namestore: truncated record header at index %d", i)
		}
		expMicros := binary.BigEndian.Uint64(buf[off : off+8])
		valueLen := int(binary.BigEndian.Uint32(buf[off+8 : off+12]))
		off += 12
		if len(buf)-off < valueLen {
			return nil, fmt.Errorf("namestore: truncated record value at index %d", i)
		}
		value := make([]byte, valueLen)
		copy(value, buf[off:off+valueLen])
		off += valueLen
		records = append(records, Record{Value: value, Expiration: time.UnixMicro(int64(expMicros))})
	}
	return records, nil
}

// LatestExpiration returns the latest expiration among records, the block
// expiration per spec.md §4.G step 2. Callers must pass a non-empty slice.
func LatestExpiration(records []Record) time.Time {
	latest := records[0].Expiration
	for _, r := range records[1:] {
		if r.Expiration.After(latest) {
			latest = r.Expiration
		}
	}
	return latest
}
