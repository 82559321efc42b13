package vm

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsObserveHostCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveHostCall(30) // "gas"
	m.ObserveHostCall(30)
	m.ObserveHostCall(9999) // unmapped index -> "unknown" label

	count := testutil.ToFloat64(m.hostCalls.WithLabelValues("gas"))
	if count != 2 {
		t.Fatalf("gas host-call count = %v, want 2", count)
	}
	unknown := testutil.ToFloat64(m.hostCalls.WithLabelValues("unknown"))
	if unknown != 1 {
		t.Fatalf("unknown host-call count = %v, want 1", unknown)
	}
}

func TestMetricsObserveGasLimitHitAndSpent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveGasLimitHit()
	if got := testutil.ToFloat64(m.gasLimitHit); got != 1 {
		t.Fatalf("gasLimitHit = %v, want 1", got)
	}

	// ObserveGasSpent must not panic and must be reflected in the histogram's
	// sample count.
	m.ObserveGasSpent(500)
	if got := testutil.CollectAndCount(m.gasSpent); got != 1 {
		t.Fatalf("gasSpent series count = %d, want 1", got)
	}
	var pb dto.Metric
	if err := m.gasSpent.Write(&pb); err != nil {
		t.Fatalf("gasSpent.Write: %v", err)
	}
	if got := pb.GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("gasSpent sample count = %d, want 1", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHostCall(30)
	m.ObserveGasLimitHit()
	m.ObserveGasSpent(10)
}
