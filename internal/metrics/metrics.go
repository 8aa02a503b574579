// Package metrics exposes Prometheus collectors for the bot and workers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poupazap"

// Metrics groups every collector on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	messages       *prometheus.CounterVec
	intents        *prometheus.CounterVec
	commands       *prometheus.CounterVec
	transactions   *prometheus.CounterVec
	errors         *prometheus.CounterVec
	handleDuration prometheus.Histogram
	actors         prometheus.Gauge
	scheduled      *prometheus.CounterVec
	exports        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by kind (text, voice, duplicate).",
		}, []string{"kind"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Recognized free text intents.",
		}, []string{"intent"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Menu commands executed.",
		}, []string{"command"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Ledger entries recorded by kind.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failures by stage.",
		}, []string{"stage"}),
		handleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_handle_seconds",
			Help:      "Time from dequeue to reply for one message.",
			Buckets:   prometheus.DefBuckets,
		}),
		actors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Users with a live message loop.",
		}),
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_expenses_total",
			Help:      "Scheduled expense actions by outcome (paid, reminded, failed).",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_exports_total",
			Help:      "Spreadsheet exports by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages, m.intents, m.commands, m.transactions, m.errors,
		m.handleDuration, m.actors, m.scheduled, m.exports,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Message(kind string) {
	if m != nil {
		m.messages.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Intent(intent string) {
	if m != nil {
		m.intents.WithLabelValues(intent).Inc()
	}
}

func (m *Metrics) Command(cmd string) {
	if m != nil {
		m.commands.WithLabelValues(cmd).Inc()
	}
}

func (m *Metrics) Transaction(kind string) {
	if m != nil {
		m.transactions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Error(stage string) {
	if m != nil {
		m.errors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) ObserveHandle(d time.Duration) {
	if m != nil {
		m.handleDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ActorStarted() {
	if m != nil {
		m.actors.Inc()
	}
}

func (m *Metrics) ActorStopped() {
	if m != nil {
		m.actors.Dec()
	}
}

func (m *Metrics) Scheduled(outcome string) {
	if m != nil {
		m.scheduled.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Export(outcome string) {
	if m != nil {
		m.exports.WithLabelValues(outcome).Inc()
	}
}
