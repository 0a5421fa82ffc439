// Package metrics exposes engine counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchbook/domain/event"
)

const namespace = "matchbook"

type Metrics struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	tradedQuantity  prometheus.Counter
	tradedNotional  prometheus.Counter
	lastTradePrice  prometheus.Gauge
	depthLevels     *prometheus.GaugeVec
	commandLatency  *prometheus.HistogramVec
	engineFaults    prometheus.Counter
	outboxPublished *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Book events by kind",
		}, []string{"kind"}),
		tradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Total quantity traded",
		}),
		tradedNotional: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_notional_total",
			Help:      "Total price times quantity traded, in ticks",
		}),
		lastTradePrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_trade_price",
			Help:      "Price of the most recent trade, in ticks",
		}),
		depthLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "depth_levels",
			Help:      "Published depth levels by side",
		}, []string{"side"}),
		commandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Time spent applying a command to the book",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"command"}),
		engineFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_faults_total",
			Help:      "Invariant violations recovered at the service boundary",
		}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox deliveries by result",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.events,
		m.tradedQuantity,
		m.tradedNotional,
		m.lastTradePrice,
		m.depthLevels,
		m.commandLatency,
		m.engineFaults,
		m.outboxPublished,
		prometheus.NewGoCollector(),
	)
	return m
}

// Observe records one book event.
func (m *Metrics) Observe(e event.Event) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
	switch e.Kind {
	case event.KindFill:
		m.tradedQuantity.Add(float64(e.Quantity))
		m.tradedNotional.Add(float64(e.Cost))
		m.lastTradePrice.Set(float64(e.Price))
	case event.KindDepth:
		m.depthLevels.WithLabelValues("bid").Set(float64(len(e.Bids)))
		m.depthLevels.WithLabelValues("ask").Set(float64(len(e.Asks)))
	}
}

// ObserveCommand records how long a command held the book.
func (m *Metrics) ObserveCommand(command string, d time.Duration) {
	m.commandLatency.WithLabelValues(command).Observe(d.Seconds())
}

func (m *Metrics) EngineFault() {
	m.engineFaults.Inc()
}

// Published counts an outbox delivery attempt.
func (m *Metrics) Published(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.outboxPublished.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
