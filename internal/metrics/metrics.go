// Package metrics provides Prometheus instrumentation for the Venture Link
// messaging core. It exposes gauges for connection and presence counts,
// counters for relay throughput, and a histogram for relay latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections,
	// registered or not.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "venturelink_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// OnlineUsers tracks the current size of the presence set.
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "venturelink_online_users",
		Help: "Current number of users with a registered live connection",
	})

	// MessagesRelayed counts relay operations, labeled by outcome:
	// "delivered" or "undelivered".
	MessagesRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venturelink_messages_relayed_total",
		Help: "Total number of messages passed through the relay",
	}, []string{"outcome"}) // outcome = "delivered", "undelivered"

	// TypingSignals counts typing/stopTyping signals, labeled by outcome:
	// "forwarded" or "dropped" (receiver offline).
	TypingSignals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venturelink_typing_signals_total",
		Help: "Total number of typing indicator signals handled",
	}, []string{"outcome"}) // outcome = "forwarded", "dropped"

	// ReadReceipts counts read acknowledgements relayed to original senders.
	ReadReceipts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venturelink_read_receipts_total",
		Help: "Total number of read receipts handled",
	}, []string{"outcome"}) // outcome = "forwarded", "dropped"

	// RelayLatency records the time spent relaying one message, from event
	// receipt to delivery acknowledgement.
	RelayLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "venturelink_relay_latency_seconds",
		Help:    "Message relay latency in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		OnlineUsers,
		MessagesRelayed,
		TypingSignals,
		ReadReceipts,
		RelayLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
