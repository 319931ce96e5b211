// Package metrics defines the Prometheus metrics exported by the game core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all game metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CoinsCollected   prometheus.Counter
	CoinsDeposited   prometheus.Counter
	CoinsMinted      prometheus.Counter
	CachesGenerated  prometheus.Counter
	Moves            *prometheus.CounterVec
	Saves            prometheus.Counter
	RestoreFailures  *prometheus.CounterVec
	CachesResident   prometheus.Gauge
	CachesHibernated prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the game metrics on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		CoinsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "coins",
			Name:      "collected_total",
			Help:      "Coins moved from caches into the inventory",
		}),
		CoinsDeposited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "coins",
			Name:      "deposited_total",
			Help:      "Coins moved from the inventory into caches",
		}),
		CoinsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "coins",
			Name:      "minted_total",
			Help:      "Coins minted when caches were first opened",
		}),
		CachesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "caches",
			Name:      "generated_total",
			Help:      "Caches registered by grid scans",
		}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "player",
			Name:      "moves_total",
			Help:      "Player moves by direction (position for absolute updates)",
		}, []string{"direction"}),
		Saves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "state",
			Name:      "saves_total",
			Help:      "Full-state snapshots written",
		}),
		RestoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geocoin",
			Subsystem: "state",
			Name:      "restore_failures_total",
			Help:      "Saved state that could not be loaded",
		}, []string{"reason"}),
		CachesResident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geocoin",
			Subsystem: "caches",
			Name:      "resident",
			Help:      "Caches currently held in the registry",
		}),
		CachesHibernated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geocoin",
			Subsystem: "caches",
			Name:      "hibernated",
			Help:      "Caches evicted by the last hibernation pass",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CoinsCollected,
		m.CoinsDeposited,
		m.CoinsMinted,
		m.CachesGenerated,
		m.Moves,
		m.Saves,
		m.RestoreFailures,
		m.CachesResident,
		m.CachesHibernated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Collected() {
	if m != nil {
		m.CoinsCollected.Inc()
	}
}

func (m *Metrics) Deposited() {
	if m != nil {
		m.CoinsDeposited.Inc()
	}
}

func (m *Metrics) Minted(n int) {
	if m != nil && n > 0 {
		m.CoinsMinted.Add(float64(n))
	}
}

func (m *Metrics) Generated(n int) {
	if m != nil && n > 0 {
		m.CachesGenerated.Add(float64(n))
	}
}

func (m *Metrics) Moved(direction string) {
	if m != nil {
		m.Moves.WithLabelValues(direction).Inc()
	}
}

func (m *Metrics) Saved() {
	if m != nil {
		m.Saves.Inc()
	}
}

func (m *Metrics) RestoreFailed(reason string) {
	if m != nil {
		m.RestoreFailures.WithLabelValues(reason).Inc()
	}
}

// Caches records the resident and hibernated cache counts.
func (m *Metrics) Caches(resident, hibernated int) {
	if m != nil {
		m.CachesResident.Set(float64(resident))
		m.CachesHibernated.Set(float64(hibernated))
	}
}
