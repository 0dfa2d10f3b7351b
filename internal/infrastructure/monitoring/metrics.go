package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter

	// Terminal session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsExited  *prometheus.CounterVec
	SpawnErrors     *prometheus.CounterVec
	SpawnDuration   prometheus.Histogram
	OutputBytes     prometheus.Counter
	InputBytes      prometheus.Counter

	startTime time.Time
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termserver_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termserver_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termserver_ws_connections",
				Help: "Number of open terminal WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termserver_ws_messages_total",
				Help: "Total number of terminal protocol events",
			},
			[]string{"direction", "type"},
		),
		WSDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termserver_ws_dropped_frames_total",
				Help: "Inbound frames dropped because they could not be decoded",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termserver_sessions_active",
				Help: "Number of live shell sessions across all connections",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termserver_sessions_created_total",
				Help: "Total number of shell sessions spawned",
			},
		),
		SessionsExited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termserver_sessions_ended_total",
				Help: "Total number of shell sessions ended, by reason",
			},
			[]string{"reason"},
		),
		SpawnErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termserver_spawn_errors_total",
				Help: "Total number of failed shell spawns, by kind",
			},
			[]string{"kind"},
		),
		SpawnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termserver_spawn_duration_seconds",
				Help:    "Time taken to start a shell process",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		OutputBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termserver_output_bytes_total",
				Help: "Bytes forwarded from shell processes to clients",
			},
		),
		InputBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termserver_input_bytes_total",
				Help: "Bytes forwarded from clients to shell processes",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "termserver_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWSMessage records a protocol event; direction is "in" or "out"
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSDropped counts an undecodable inbound frame
func (m *Metrics) IncWSDropped() {
	m.WSDropped.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// SessionStarted records a successful spawn
func (m *Metrics) SessionStarted() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
}

// SessionEnded records a session leaving a registry; reason is "exit" or
// "destroyed".
func (m *Metrics) SessionEnded(reason string) {
	m.SessionsActive.Dec()
	m.SessionsExited.WithLabelValues(reason).Inc()
}

// RecordSpawnError records a failed spawn by SpawnError kind
func (m *Metrics) RecordSpawnError(kind string) {
	m.SpawnErrors.WithLabelValues(kind).Inc()
}

// AddOutputBytes counts bytes sent towards clients
func (m *Metrics) AddOutputBytes(n int) {
	m.OutputBytes.Add(float64(n))
}

// AddInputBytes counts bytes written to shells
func (m *Metrics) AddInputBytes(n int) {
	m.InputBytes.Add(float64(n))
}
