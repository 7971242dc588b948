package focus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "billow_focus_active_sessions",
		Help: "Number of live focus sessions.",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billow_focus_sessions_started_total",
		Help: "Total number of focus sessions started.",
	})

	sessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billow_focus_sessions_completed_total",
		Help: "Total number of focus sessions that reached their target duration.",
	})

	sessionsStopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billow_focus_sessions_stopped_total",
		Help: "Total number of focus sessions stopped before completion.",
	})

	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billow_focus_ticks_total",
		Help: "Total number of elapsed seconds counted across all sessions.",
	})

	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "billow_focus_connections_active",
		Help: "Number of open focus websocket connections.",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billow_focus_events_dropped_total",
		Help: "Total events dropped because the client send buffer was full.",
	})
)
