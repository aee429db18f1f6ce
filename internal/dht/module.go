package dht

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/internal/routing"
	"github.com/kademlia-dht/overlay/internal/store"
	"github.com/kademlia-dht/overlay/internal/validator"
	"github.com/kademlia-dht/overlay/pkg/crypto"
)

// SweepInterval governs how often Router.RunSweeper reaps expired
// outstanding-GET state.
const SweepInterval = 30 * time.Second

// Module provides a *Router wired to the identity, routing table, block
// store, and validator registry, and runs its background sweep for the
// lifetime of the fx.App.
func Module() fx.Option {
	return fx.Module("dht",
		fx.Provide(provideRouter),
		fx.Invoke(registerLifecycle),
	)
}

func provideRouter(priv crypto.PrivateKey, table *routing.Table, blocks *store.Store, validators *validator.Registry, cfg Config) (*Router, error) {
	return NewRouter(priv, table, blocks, validators, cfg)
}

func registerLifecycle(lc fx.Lifecycle, r *Router) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.RunSweeper(SweepInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			r.Stop()
			return nil
		},
	})
}
