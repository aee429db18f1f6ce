// Package overlay wires the content-addressed DHT components (routing
// table, block store, validator registry, router, zone-master publisher,
// and MQ layer) into one fx.App, following dep2p-go-dep2p's fx.go
// composition idiom: one fx.Module per internal package, assembled here
// with fx.Supply for leaf configuration and fxevent.ZapLogger for startup
// diagnostics.
package overlay

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/kademlia-dht/overlay/internal/dht"
	"github.com/kademlia-dht/overlay/internal/mq"
	"github.com/kademlia-dht/overlay/internal/namestore"
	"github.com/kademlia-dht/overlay/internal/routing"
	"github.com/kademlia-dht/overlay/internal/store"
	"github.com/kademlia-dht/overlay/internal/validator"
	"github.com/kademlia-dht/overlay/internal/zonemaster"
	"github.com/kademlia-dht/overlay/pkg/crypto"
	"github.com/kademlia-dht/overlay/pkg/log"
)

var logger = log.Logger("overlay")

// Config bundles the leaf settings build needs before any fx.Module runs.
// A Gateway with zero TokenBucketRate is replaced by
// DefaultGatewayConfig(); Store and Router are supplied as given, with no
// defaults applied to their zero-value fields.
type Config struct {
	IdentityPath string
	Store        store.Config
	Router       dht.Config
	Gateway      GatewayConfig
}

// Node is the assembled application: an fx.App plus the identity it was
// built with. Start/Stop mirror dep2p-go-dep2p's Node.Start/Node.Stop
// pair (app.Start/app.Stop under a deadline), simplified since this
// module has no multi-phase NAT/readiness pipeline to sequence.
type Node struct {
	app  *fx.App
	priv crypto.PrivateKey
}

// PeerID returns the local node's identity.
func (n *Node) PeerID() string {
	return n.priv.Public().PeerID().String()
}

// Start brings every fx.Module's lifecycle hooks up (router sweeper,
// scheduler, store backend, zone-master publisher if wired).
func (n *Node) Start(ctx context.Context) error {
	if err := n.app.Start(ctx); err != nil {
		return fmt.Errorf("start overlay: %w", err)
	}
	logger.Info("overlay started", "peer", n.PeerID())
	return nil
}

// Stop tears every fx.Module's lifecycle hooks down in reverse order.
func (n *Node) Stop(ctx context.Context) error {
	if err := n.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop overlay: %w", err)
	}
	logger.Info("overlay stopped", "peer", n.PeerID())
	return nil
}

// New assembles the core DHT stack (identity, store, routing, validator,
// router, mq infrastructure) without zone publishing. Use NewWithPublisher
// to additionally wire internal/zonemaster against a supplied
// namestore.Monitor and zone key.
func New(cfg Config, extra ...fx.Option) (*Node, error) {
	priv, coreOpts, err := coreOptions(cfg)
	if err != nil {
		return nil, err
	}
	return build(priv, append(coreOpts, extra...))
}

// NewWithPublisher additionally wires internal/zonemaster, publishing zone
// into the DHT on Start. ns is the external namestore.Monitor collaborator
// (spec.md §1 places its production implementation out of scope; tests use
// namestore.InMemoryMonitor). zoneKey is the zone's own private key, used to
// both sign published blocks and derive the zone's public key (the node's
// own identity key is unrelated and kept separate, since a node may publish
// a zone it doesn't hold the identity key for).
func NewWithPublisher(cfg Config, ns namestore.Monitor, zoneKey crypto.PrivateKey, pubCfg zonemaster.Config, extra ...fx.Option) (*Node, error) {
	priv, coreOpts, err := coreOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts := append(coreOpts,
		fx.Supply(
			fx.Annotate(ns, fx.As(new(namestore.Monitor))),
		),
		fx.Supply(pubCfg),
		fx.Supply(zonemaster.ZoneParams{Key: zoneKey}),
		fx.Provide(func(r *dht.Router) zonemaster.Putter { return r }),
		zonemaster.Module(),
	)
	return build(priv, append(opts, extra...))
}

func coreOptions(cfg Config) (crypto.PrivateKey, []fx.Option, error) {
	priv, err := LoadOrCreateIdentity(cfg.IdentityPath)
	if err != nil {
		return crypto.PrivateKey{}, nil, fmt.Errorf("load identity: %w", err)
	}
	cfg.Store.LocalID = crypto.PeerIDHash(priv.Public())
	if cfg.Gateway.TokenBucketRate == 0 {
		cfg.Gateway = DefaultGatewayConfig()
	}

	return priv, []fx.Option{
		fx.Supply(priv),
		fx.Supply(cfg.Store),
		fx.Supply(cfg.Router),
		fx.Supply(cfg.Gateway),
		fx.Supply(
			fx.Annotate(prometheus.NewRegistry(), fx.As(new(prometheus.Registerer))),
		),

		store.Module(),
		routing.Module(),
		validator.Module(),
		dht.Module(),
		mq.Module(),
		gatewayModule(),

		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	}, nil
}

func build(priv crypto.PrivateKey, options []fx.Option) (*Node, error) {
	app := fx.New(options...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("assemble overlay: %w", err)
	}
	return &Node{app: app, priv: priv}, nil
}
