package mq

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes per-queue gauges/counters through
// github.com/prometheus/client_golang — present in the teacher's go.mod
// but never wired into any teacher code; wired here to give that
// dependency a concrete home (queue depth and flow-control visibility are
// exactly what a DHT's MQ layer needs to report).
type Metrics struct {
	queueDepth *prometheus.GaugeVec
	sent       *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	tokens     *prometheus.GaugeVec
}

// NewMetrics builds and registers the MQ metric vectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "overlay", Subsystem: "mq", Name: "queue_depth",
			Help: "Number of envelopes currently buffered per peer queue.",
		}, []string{"peer"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overlay", Subsystem: "mq", Name: "envelopes_sent_total",
			Help: "Total envelopes transmitted per peer queue.",
		}, []string{"peer"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overlay", Subsystem: "mq", Name: "envelopes_dropped_total",
			Help: "Total envelopes dropped per peer queue (transmit failure or shutdown).",
		}, []string{"peer"}),
		tokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "overlay", Subsystem: "mq", Name: "token_bucket_available",
			Help: "Current available token-bucket budget per peer queue.",
		}, []string{"peer"}),
	}
	reg.MustRegister(m.queueDepth, m.sent, m.dropped, m.tokens)
	return m
}

func (m *Metrics) observeDepth(peer string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(peer).Set(float64(depth))
}

func (m *Metrics) observeSent(peer string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(peer).Inc()
}

func (m *Metrics) observeDropped(peer string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(peer).Inc()
}

func (m *Metrics) observeTokens(peer string, tokens int64) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(peer).Set(float64(tokens))
}
