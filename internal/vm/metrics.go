package vm

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the ambient instrumentation surface for one runtime process:
// a host-call counter vector whose "index" label holds the host-function
// name for each dispatch index ("unknown" if unmapped), a counter of
// charges rejected at the gas limit, and a histogram of
// gas spent per invocation. It is optional — a nil *Metrics disables all
// observation, so tests and the reference Ext don't need a registry.
type Metrics struct {
	hostCalls   *prometheus.CounterVec
	gasLimitHit prometheus.Counter
	gasSpent    prometheus.Histogram
}

// NewMetrics registers a fresh Metrics set on reg. Pass
// prometheus.NewRegistry() for test isolation, or prometheus.DefaultRegisterer
// for a process-wide singleton.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hostCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wasmhost",
			Name:      "host_calls_total",
			Help:      "Count of host-function invocations by host-function name.",
		}, []string{"index"}),
		gasLimitHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wasmhost",
			Name:      "gas_limit_hit_total",
			Help:      "Count of charges rejected for exceeding the gas limit.",
		}),
		gasSpent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wasmhost",
			Name:      "gas_spent",
			Help:      "Gas consumed per completed invocation.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}),
	}
	reg.MustRegister(m.hostCalls, m.gasLimitHit, m.gasSpent)
	return m
}

func (m *Metrics) ObserveHostCall(index int32) {
	if m == nil {
		return
	}
	m.hostCalls.WithLabelValues(indexLabel(index)).Inc()
}

func (m *Metrics) ObserveGasLimitHit() {
	if m == nil {
		return
	}
	m.gasLimitHit.Inc()
}

func (m *Metrics) ObserveGasSpent(amount uint64) {
	if m == nil {
		return
	}
	m.gasSpent.Observe(float64(amount))
}

func indexLabel(index int32) string {
	for _, h := range hostTable {
		if h.index == index {
			return h.name
		}
	}
	return "unknown"
}
