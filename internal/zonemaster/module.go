package zonemaster

import (
	"context"

	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/internal/namestore"
	"github.com/kademlia-dht/overlay/pkg/crypto"
)

// ZoneParams names the zone this node publishes into the DHT, carrying the
// zone's own private key rather than its public key: the publisher signs
// every block with it (validator.EncodeSignedZoneBlock), and the DHT key a
// reader derives (crypto.DeriveBlockKey(zonePub, label)) only lands on the
// signer's embedded public key when both come from the same keypair. The
// embedding application supplies it (there is no default: spec.md §1 treats
// the namestore, and therefore zone ownership, as external).
type ZoneParams struct {
	Key crypto.PrivateKey
}

// Module provides a *Publisher and runs it against ZoneParams.Key for the
// lifetime of the fx.App. Requires the application to separately fx.Supply
// a namestore.Monitor and a Putter (satisfied by *internal/dht.Router).
func Module() fx.Option {
	return fx.Module("zonemaster",
		fx.Provide(providePublisher),
		fx.Invoke(registerLifecycle),
	)
}

func providePublisher(ns namestore.Monitor, put Putter, zone ZoneParams, cfg Config) *Publisher {
	return NewPublisher(ns, put, zone.Key, cfg)
}

func registerLifecycle(lc fx.Lifecycle, p *Publisher, zone ZoneParams) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return p.Run(zone.Key.Public())
		},
		OnStop: func(context.Context) error {
			p.Stop()
			return nil
		},
	})
}
