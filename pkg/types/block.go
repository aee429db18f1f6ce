package types

import (
	"crypto/sha512"
	"time"
)

// Block is one stored DHT payload: a key, its declared type, the raw bytes,
// and the absolute instant after which it must no longer be served.
type Block struct {
	Key        HashKey
	Type       BlockType
	Payload    []byte
	Expiration time.Time
}

// IsExpired reports whether the block's expiration has passed.
func (b *Block) IsExpired() bool {
	return !b.Expiration.After(time.Now())
}

// ContentHash is the value tested against a reply bloom filter for
// duplicate-reply suppression: the hash of the block's payload, not its key
// (two blocks under the same key with different payloads must not
// collide).
func (b *Block) ContentHash() HashKey {
	return sha512.Sum512(b.Payload)
}
