package mq

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeDepth("peerA", 3)
	m.observeSent("peerA")
	m.observeDropped("peerA")
	m.observeTokens("peerA", 42)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	var sawDepth, sawSent, sawDropped, sawTokens bool
	for _, mf := range families {
		switch mf.GetName() {
		case "overlay_mq_queue_depth":
			sawDepth = true
			require.Equal(t, float64(3), firstMetricValue(mf))
		case "overlay_mq_envelopes_sent_total":
			sawSent = true
			require.Equal(t, float64(1), firstMetricValue(mf))
		case "overlay_mq_envelopes_dropped_total":
			sawDropped = true
			require.Equal(t, float64(1), firstMetricValue(mf))
		case "overlay_mq_token_bucket_available":
			sawTokens = true
			require.Equal(t, float64(42), firstMetricValue(mf))
		}
	}
	require.True(t, sawDepth)
	require.True(t, sawSent)
	require.True(t, sawDropped)
	require.True(t, sawTokens)
}

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.observeDepth("x", 1)
		m.observeSent("x")
		m.observeDropped("x")
		m.observeTokens("x", 1)
	})
}

func firstMetricValue(mf *dto.MetricFamily) float64 {
	metric := mf.GetMetric()[0]
	if g := metric.GetGauge(); g != nil {
		return g.GetValue()
	}
	if c := metric.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}
