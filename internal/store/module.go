package store

import (
	"context"

	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/pkg/types"
)

// Config is the fx-supplied configuration for the block store. DataDir
// selects the badger-backed durable mirror's location; Capacity bounds the
// in-memory working set (spec.md §4.B's size-capped eviction).
type Config struct {
	LocalID  types.HashKey
	DataDir  string
	Capacity int
}

// Module provides a *Store wired to a badger durable backend, following
// dep2p-go-dep2p's per-package fx.Module idiom (identity.Module,
// storage.Module).
func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(provideStore),
		fx.Invoke(registerLifecycle),
	)
}

func provideStore(cfg Config) (*Store, *BadgerBackend, error) {
	backend, err := NewBadgerBackend(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	s, err := New(cfg.LocalID, cfg.Capacity, backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return s, backend, nil
}

func registerLifecycle(lc fx.Lifecycle, backend *BadgerBackend) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return backend.Close()
		},
	})
}
