package routing

import (
	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/pkg/crypto"
)

// Module provides a *Table seeded with the local identity's PeerID.
func Module() fx.Option {
	return fx.Module("routing",
		fx.Provide(provideTable),
	)
}

func provideTable(priv crypto.PrivateKey) *Table {
	return NewTable(priv.Public().PeerID())
}
