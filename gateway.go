package overlay

import (
	"context"

	"go.uber.org/fx"

	"github.com/kademlia-dht/overlay/internal/dht"
	"github.com/kademlia-dht/overlay/internal/mq"
	"github.com/kademlia-dht/overlay/internal/routing"
	"github.com/kademlia-dht/overlay/internal/underlay"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/types"
)

// GatewayConfig tunes the per-peer queue gateway sits between underlay and
// the router.
type GatewayConfig struct {
	// ListenAddresses is passed through to underlay.Config on Connect.
	ListenAddresses []underlay.Address
	// QueueBufferSize bounds how many envelopes an mq.Queue buffers before
	// Send blocks.
	QueueBufferSize int
	// TokenBucketRate and TokenBucketCapacity pace each peer's outbound
	// send rate (bytes/second, burst capacity).
	TokenBucketRate     int64
	TokenBucketCapacity int64
}

// DefaultGatewayConfig returns the gateway defaults absent explicit
// configuration.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		QueueBufferSize:     64,
		TokenBucketRate:     1 << 20, // 1 MiB/s
		TokenBucketCapacity: 1 << 21,
	}
}

// gateway implements underlay.Handlers, translating connect/disconnect/
// message notifications into routing.Table and dht.Router calls (spec.md
// §6 "Router -> underlay" primitives, the inverse direction it leaves
// implicit per DESIGN.md Open Question decision #5). One gateway serves one
// local node.
type gateway struct {
	table   *routing.Table
	router  *dht.Router
	metrics *mq.Metrics
	cfg     GatewayConfig

	handle underlay.Handle
}

func newGateway(table *routing.Table, router *dht.Router, metrics *mq.Metrics, cfg GatewayConfig) *gateway {
	return &gateway{table: table, router: router, metrics: metrics, cfg: cfg}
}

// handlers returns the underlay.Handlers bound to this gateway, suitable
// for underlay.Underlay.Connect.
func (g *gateway) handlers() underlay.Handlers {
	return underlay.Handlers{
		OnConnect:    g.onConnect,
		OnDisconnect: g.onDisconnect,
		OnMessage:    g.onMessage,
	}
}

func (g *gateway) onConnect(peer types.PeerID, out underlay.MessageQueue) {
	bucket := mq.NewTokenBucket(g.cfg.TokenBucketRate, g.cfg.TokenBucketCapacity)
	q := mq.NewQueue(peer, transmitter{out}, bucket, g.cfg.QueueBufferSize, g.metrics)
	g.table.PeerConnected(peer, q)
}

func (g *gateway) onDisconnect(peer types.PeerID) {
	g.table.PeerDisconnected(peer)
}

func (g *gateway) onMessage(peer types.PeerID, envelope []byte) {
	if err := g.router.Dispatch(envelope); err != nil {
		logger.Debug("dropping undeliverable envelope", "peer", peer, "error", err)
		return
	}
	g.table.MarkActive(peer)
}

// transmitter adapts underlay.MessageQueue's Send to mq.Transport's
// Transmit, the narrow seam mq.Queue drains into.
type transmitter struct {
	q underlay.MessageQueue
}

func (t transmitter) Transmit(envelope []byte) error {
	return t.q.Send(envelope)
}

// gatewayParams collects gateway's fx dependencies. Transport is optional:
// internal/underlay ships no production implementation (spec.md §1), so an
// embedding application supplies one via fx.Supply/fx.Provide among
// New's extra options; absent that, the gateway is still constructed
// (useful for tests driving Dispatch directly) but never calls Connect.
type gatewayParams struct {
	fx.In

	Table     *routing.Table
	Router    *dht.Router
	Metrics   *mq.Metrics
	Cfg       GatewayConfig
	Priv      crypto.PrivateKey
	Transport underlay.Underlay `optional:"true"`
}

func provideGateway(p gatewayParams) *gateway {
	return newGateway(p.Table, p.Router, p.Metrics, p.Cfg)
}

func registerGatewayLifecycle(lc fx.Lifecycle, gw *gateway, p gatewayParams) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if p.Transport == nil {
				return nil
			}
			cfg := underlay.Config{
				ListenAddresses: p.Cfg.ListenAddresses,
				LocalPeerID:     p.Priv.Public().PeerID(),
			}
			handle, err := p.Transport.Connect(cfg, gw.handlers())
			if err != nil {
				return err
			}
			gw.handle = handle
			return nil
		},
		OnStop: func(context.Context) error {
			if gw.handle == nil {
				return nil
			}
			return gw.handle.Disconnect()
		},
	})
}

func gatewayModule() fx.Option {
	return fx.Module("gateway",
		fx.Provide(provideGateway),
		fx.Invoke(registerGatewayLifecycle),
	)
}
