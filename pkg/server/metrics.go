package server

import (
	"net/http"
	"time"

	"github.com/littlemud/littlemud/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus series for one game. Each game has its
// own registry so that tests can build as many games as they like.
type Metrics struct {
	game     *Game
	registry *prometheus.Registry

	sessions      *prometheus.GaugeVec
	entities      prometheus.Gauge
	players       prometheus.Gauge
	connections   *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	commands      prometheus.Counter
	commandFaults prometheus.Counter
	logins        prometheus.Counter
	redirects     prometheus.Counter
	uptime        prometheus.Gauge
}

// NewMetrics creates and registers the series for game.
func NewMetrics(game *Game) *Metrics {
	m := &Metrics{
		game:     game,
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "littlemud_sessions",
			Help: "Number of open sessions by transport.",
		}, []string{"transport"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "littlemud_entities",
			Help: "Number of objects in the world.",
		}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "littlemud_players",
			Help: "Number of player objects in the world.",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "littlemud_connections_total",
			Help: "Connections accepted since server start.",
		}, []string{"transport"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "littlemud_connections_rejected_total",
			Help: "Connections refused since server start, by reason.",
		}, []string{"reason"}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "littlemud_commands_total",
			Help: "Command lines dispatched since server start.",
		}),
		commandFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "littlemud_command_faults_total",
			Help: "Command handlers that failed since server start.",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "littlemud_logins_total",
			Help: "Players bound to a session since server start.",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "littlemud_redirects_total",
			Help: "Sessions closed in favour of a newer login.",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "littlemud_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
	}

	m.registry.MustRegister(
		m.sessions,
		m.entities,
		m.players,
		m.connections,
		m.rejected,
		m.commands,
		m.commandFaults,
		m.logins,
		m.redirects,
		m.uptime,
	)
	return m
}

// Accepted counts a new session on transport.
func (m *Metrics) Accepted(transport string) {
	m.connections.WithLabelValues(transport).Inc()
	m.sessions.WithLabelValues(transport).Inc()
}

// Closed counts a finished session on transport.
func (m *Metrics) Closed(transport string) {
	m.sessions.WithLabelValues(transport).Dec()
}

// Rejected counts a refused connection.
func (m *Metrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// Dispatched counts a dispatched command line.
func (m *Metrics) Dispatched() { m.commands.Inc() }

// Fault counts a failed command handler.
func (m *Metrics) Fault() { m.commandFaults.Inc() }

// Receive counts session lifecycle events.
func (m *Metrics) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvConnect:
		m.logins.Inc()
	case events.EvRedirect:
		m.redirects.Inc()
	}
}

// Update refreshes the gauges derived from the world.
func (m *Metrics) Update() {
	m.entities.Set(float64(m.game.DB.Len()))
	m.players.Set(float64(len(m.game.DB.Players())))
	m.uptime.Set(time.Since(m.game.Started).Seconds())
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		inner.ServeHTTP(w, r)
	})
}
