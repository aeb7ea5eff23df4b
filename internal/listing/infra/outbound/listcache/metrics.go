package listcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "listdash"

// Metrics agrupa los colectores de todas las cachés de listados.
// Una única instancia por Registerer; cada caché se distingue por la etiqueta "cache".
type Metrics struct {
	lookups       *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	invalidations *prometheus.CounterVec
	staleDrops    *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	entries       *prometheus.GaugeVec
	activePolls   *prometheus.GaugeVec
}

// NewMetrics crea y registra los colectores. Con reg == nil no se registran
// (útil en tests que no inspeccionan métricas).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of list cache resolutions",
			},
			[]string{"cache", "result"}, // result: hit, miss, dedup, stale
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_fetches_total",
				Help:      "Total number of fetches issued by the list cache",
			},
			[]string{"cache", "status"}, // status: success, error
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_fetch_duration_seconds",
				Help:      "Duration of list fetches in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"cache"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidated_entries_total",
				Help:      "Total number of entries marked stale by tag invalidation",
			},
			[]string{"cache", "tag"},
		),
		staleDrops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_stale_completions_total",
				Help:      "Fetch completions dropped because the entry moved on",
			},
			[]string{"cache"},
		),
		evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of entries evicted",
			},
			[]string{"cache", "reason"}, // reason: lru, manual
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Number of entries currently held",
			},
			[]string{"cache"},
		),
		activePolls: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_active_polls",
				Help:      "Number of running poll loops",
			},
			[]string{"cache"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.lookups, m.fetches, m.fetchDuration, m.invalidations,
			m.staleDrops, m.evictions, m.entries, m.activePolls,
		)
	}
	return m
}
