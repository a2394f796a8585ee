package core

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry     *prometheus.Registry
	Computations *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	CacheLookups *prometheus.CounterVec
	LatestValue  prometheus.Gauge
	Excluded     *prometheus.CounterVec
}

// NewMetrics registers the service collectors on their own registry so tests can build as many as they like
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	mt := &Metrics{
		registry: reg,
		Computations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gti_computations_total", Help: "Index computations by endpoint and outcome"},
			[]string{"endpoint", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "gti_computation_seconds", Help: "Time spent serving a computation", Buckets: prometheus.DefBuckets},
			[]string{"endpoint"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gti_cache_lookups_total", Help: "Result cache lookups by result"},
			[]string{"result"},
		),
		LatestValue: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "gti_latest_value", Help: "Most recently published index value"},
		),
		Excluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gti_excluded_instruments_total", Help: "Instruments left out of a run by reason"},
			[]string{"reason"},
		),
	}

	reg.MustRegister(mt.Computations, mt.Duration, mt.CacheLookups, mt.LatestValue, mt.Excluded)
	return mt
}

func (mt *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(mt.registry, promhttp.HandlerOpts{})
}

// observe records one finished computation, safe on a nil receiver
func (mt *Metrics) observe(endpoint string, start time.Time, err error) {
	if mt == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mt.Computations.WithLabelValues(endpoint, outcome).Inc()
	mt.Duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (mt *Metrics) cacheLookup(hit bool) {
	if mt == nil {
		return
	}
	if hit {
		mt.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	mt.CacheLookups.WithLabelValues("miss").Inc()
}

func (mt *Metrics) published(res *IndexResult) {
	if mt == nil {
		return
	}
	if res.Latest.Valid {
		mt.LatestValue.Set(res.Latest.Float64)
	}
	for _, e := range res.Diagnostics.Excluded {
		mt.Excluded.WithLabelValues(e.Reason).Inc()
	}
}
