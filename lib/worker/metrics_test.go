package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return &Metrics{
		Cycles:        prometheus.NewCounter(prometheus.CounterOpts{Name: "test_cycles_total"}),
		FetchErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_fetch_errors_total"}, []string{"kind"}),
		FetchDuration: prometheus.NewSummary(prometheus.SummaryOpts{Name: "test_fetch_seconds"}),
		Decoded:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_decoded_total"}),
		Distant:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_distant_total"}),
		Visible:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_visible"}),
		Throttled:     prometheus.NewCounter(prometheus.CounterOpts{Name: "test_throttled_total"}),
	}
}

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}
