package store

import (
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kademlia-dht/overlay/pkg/types"
)

// BadgerBackend is the durable mirror of the in-memory block index,
// grounded on the teacher's addressbook/store_badger.go shape (JSON-encode
// each record, prefix-scan to repopulate a cache on open) but written
// directly against badger/v4 rather than through the teacher's internal kv
// wrapper, since that wrapper is not itself one of the spec's components.
type BadgerBackend struct {
	db *badger.DB
}

type persistedBlock struct {
	Key        [types.HashKeySize]byte `json:"key"`
	Type       uint32                  `json:"type"`
	Payload    []byte                  `json:"payload"`
	Expiration int64                   `json:"expiration_unix_nano"`
}

// NewBadgerBackend opens (or creates) a badger database at dir.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerBackend{db: db}, nil
}

func blockStorageKey(k types.HashKey) []byte {
	return append([]byte("block/"), k[:]...)
}

// LoadAll reads every non-expired persisted block back out, used only at
// cold start.
func (b *BadgerBackend) LoadAll() ([]*types.Block, error) {
	var out []*types.Block
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("block/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var p persistedBlock
				if err := json.Unmarshal(val, &p); err != nil {
					return nil // skip corrupt entries
				}
				blk := &types.Block{
					Key:        p.Key,
					Type:       types.BlockType(p.Type),
					Payload:    p.Payload,
					Expiration: time.Unix(0, p.Expiration),
				}
				if !blk.IsExpired() {
					out = append(out, blk)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Persist writes blk to the database, overwriting any previous value under
// the same key.
func (b *BadgerBackend) Persist(blk *types.Block) error {
	p := persistedBlock{
		Key:        blk.Key,
		Type:       uint32(blk.Type),
		Payload:    blk.Payload,
		Expiration: blk.Expiration.UnixNano(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockStorageKey(blk.Key), raw)
	})
}

// Delete removes the persisted record for key, if any.
func (b *BadgerBackend) Delete(key types.HashKey) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(blockStorageKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Close releases the underlying database handle.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

var _ Backend = (*BadgerBackend)(nil)
