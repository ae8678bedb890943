// Package metrics exposes prometheus collectors for the chat service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChatMetrics holds the collectors for session routing and messaging.
type ChatMetrics struct {
	SessionsOpened  prometheus.Counter
	SessionsClosed  prometheus.Counter
	MessagesPosted  prometheus.Counter
	RoutingFailures prometheus.Counter
	ActiveSessions  prometheus.Gauge
	Connections     prometheus.Gauge
}

var (
	once sync.Once
	inst *ChatMetrics
)

// Chat returns the global chat metrics, registering them on first use.
func Chat() *ChatMetrics {
	once.Do(func() {
		inst = &ChatMetrics{
			SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "transitdesk",
				Subsystem: "chat",
				Name:      "sessions_opened_total",
				Help:      "Chat sessions successfully routed to an agent",
			}),
			SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "transitdesk",
				Subsystem: "chat",
				Name:      "sessions_closed_total",
				Help:      "Chat sessions closed",
			}),
			MessagesPosted: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "transitdesk",
				Subsystem: "chat",
				Name:      "messages_total",
				Help:      "Messages appended to chat sessions",
			}),
			RoutingFailures: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "transitdesk",
				Subsystem: "chat",
				Name:      "routing_failures_total",
				Help:      "Session requests rejected because no agent was eligible",
			}),
			ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "transitdesk",
				Subsystem: "chat",
				Name:      "active_sessions",
				Help:      "Currently active chat sessions",
			}),
			Connections: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "transitdesk",
				Subsystem: "realtime",
				Name:      "connections",
				Help:      "Open websocket connections",
			}),
		}
	})
	return inst
}
