package validator

import (
	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/pkg/types"
)

// Module provides a *Registry pre-populated with one validator per
// BlockType this repo understands (spec.md §4.F's dispatch table).
func Module() fx.Option {
	return fx.Module("validator",
		fx.Provide(provideRegistry),
	)
}

func provideRegistry() *Registry {
	r := NewRegistry()
	r.Register(types.BlockTypeFSData, NewContentAddressedValidator(types.BlockTypeFSData))
	r.Register(types.BlockTypeFSIndex, NewContentAddressedValidator(types.BlockTypeFSIndex))
	r.Register(types.BlockTypeUserBlock, NewSignedZoneValidator(types.BlockTypeUserBlock))
	r.Register(types.BlockTypeGNSRecord, NewSignedZoneValidator(types.BlockTypeGNSRecord))
	r.Register(types.BlockTypeHello, NewHelloValidator())
	return r
}
