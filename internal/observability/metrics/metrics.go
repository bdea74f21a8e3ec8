package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters/histograms for the lead-notification flow.
type RelayMetrics struct {
	dispatchTotal   *prometheus.CounterVec
	callbackTotal   *prometheus.CounterVec
	callbackLatency *prometheus.HistogramVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadbridge",
			Subsystem: "notify",
			Name:      "dispatch_total",
			Help:      "Total lead dispatch attempts by outcome",
		}, []string{"outcome"}),
		callbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadbridge",
			Subsystem: "webhooks",
			Name:      "callback_total",
			Help:      "Total provider callbacks by endpoint and result",
		}, []string{"endpoint", "result"}),
		callbackLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadbridge",
			Subsystem: "webhooks",
			Name:      "callback_latency_seconds",
			Help:      "Latency of provider callback processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.dispatchTotal, m.callbackTotal, m.callbackLatency)
	return m
}

func (m *RelayMetrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) ObserveCallback(endpoint, result string) {
	if m == nil {
		return
	}
	m.callbackTotal.WithLabelValues(endpoint, result).Inc()
}

func (m *RelayMetrics) ObserveCallbackLatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.callbackLatency.WithLabelValues(endpoint).Observe(seconds)
}
