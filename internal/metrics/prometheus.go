package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "valuation_catalog"

// Prometheus exports the catalog events as Prometheus series.
type Prometheus struct {
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	indexedRows   prometheus.Gauge
	droppedRows   prometheus.Gauge
	lookups       *prometheus.CounterVec
	resolves      *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index builds by result",
		}, []string{"result"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Time spent fetching rows and building the index",
			Buckets:   prometheus.DefBuckets,
		}),
		indexedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_rows",
			Help:      "Rows consumed by the last successful build",
		}),
		droppedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_dropped_rows",
			Help:      "Rows dropped as malformed by the last successful build",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Index requests by cache result",
		}, []string{"result"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolves_total",
			Help:      "Valuation lookups by outcome",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		p.builds, p.buildDuration, p.indexedRows, p.droppedRows, p.lookups, p.resolves,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordBuild implements Collector.
func (p *Prometheus) RecordBuild(rows, dropped int, duration time.Duration, err error) {
	p.buildDuration.Observe(duration.Seconds())
	if err != nil {
		p.builds.WithLabelValues("error").Inc()
		return
	}
	p.builds.WithLabelValues("ok").Inc()
	p.indexedRows.Set(float64(rows))
	p.droppedRows.Set(float64(dropped))
}

// RecordCacheLookup implements Collector.
func (p *Prometheus) RecordCacheLookup(hit bool) {
	if hit {
		p.lookups.WithLabelValues("hit").Inc()
	} else {
		p.lookups.WithLabelValues("miss").Inc()
	}
}

// RecordResolve implements Collector.
func (p *Prometheus) RecordResolve(outcome string) {
	p.resolves.WithLabelValues(outcome).Inc()
}
