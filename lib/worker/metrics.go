package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"allsky.watch/lib/feed"
	"allsky.watch/lib/skypos"
)

// Metrics are optional, any nil member is skipped
type Metrics struct {
	Cycles        prometheus.Counter
	FetchErrors   *prometheus.CounterVec
	FetchDuration prometheus.Observer
	Decoded       prometheus.Counter
	Distant       prometheus.Counter
	Visible       prometheus.Gauge
	Throttled     prometheus.Counter
}

func (m *Metrics) cycle() {
	if nil != m && nil != m.Cycles {
		m.Cycles.Inc()
	}
}

func (m *Metrics) fetched(took time.Duration) {
	if nil != m && nil != m.FetchDuration {
		m.FetchDuration.Observe(took.Seconds())
	}
}

func (m *Metrics) fetchError(kind feed.ErrorKind) {
	if nil != m && nil != m.FetchErrors {
		m.FetchErrors.WithLabelValues(kind.String()).Inc()
	}
	if nil != m && nil != m.Visible {
		m.Visible.Set(0)
	}
}

func (m *Metrics) calculated(stats skypos.Stats) {
	if nil == m {
		return
	}
	if nil != m.Decoded {
		m.Decoded.Add(float64(stats.Decoded))
	}
	if nil != m.Distant {
		m.Distant.Add(float64(stats.Distant))
	}
	if nil != m.Visible {
		m.Visible.Set(float64(stats.Visible))
	}
}

func (m *Metrics) throttled() {
	if nil != m && nil != m.Throttled {
		m.Throttled.Inc()
	}
}
