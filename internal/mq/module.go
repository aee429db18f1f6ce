package mq

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides the shared, peer-independent MQ infrastructure: a
// Prometheus registerer-backed Metrics instance and a Scheduler whose
// lifetime matches the fx.App. Per-peer Queue/TokenBucket pairs are created
// dynamically as peers connect (internal/underlay.Handlers.OnConnect), not
// through fx, since there is no fixed peer set to provide in advance.
func Module() fx.Option {
	return fx.Module("mq",
		fx.Provide(
			provideMetrics,
			provideScheduler,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideMetrics(reg prometheus.Registerer) *Metrics {
	return NewMetrics(reg)
}

func provideScheduler() *Scheduler {
	return NewScheduler(context.Background())
}

func registerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}
