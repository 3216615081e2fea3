package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every collector of this process. It is served on /metrics.
var Registry = prometheus.NewRegistry()

// Event kinds and outcomes for ConversationEvents.
const (
	KindLocal   = "local"
	KindMessage = "message"
	KindReceipt = "receipt"

	OutcomeApplied   = "applied"
	OutcomeForeign   = "foreign"
	OutcomeDuplicate = "duplicate"
	OutcomeMalformed = "malformed"
	OutcomeQueued    = "queued"
	OutcomeStale     = "stale"
)

var (
	ConversationEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatroom",
		Subsystem: "conversation",
		Name:      "events_total",
		Help:      "Events handled by the reconciliation engine by kind and outcome.",
	}, []string{"kind", "outcome"})

	ReadAcks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatroom",
		Subsystem: "conversation",
		Name:      "read_acks_total",
		Help:      "Read acknowledgements emitted for inbound messages.",
	})

	HistoryLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatroom",
		Subsystem: "conversation",
		Name:      "history_loads_total",
		Help:      "History loads by result (ok, error, stale).",
	}, []string{"result"})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatroom",
		Subsystem: "server",
		Name:      "ws_connections",
		Help:      "Open websocket connections.",
	})

	MessagesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatroom",
		Subsystem: "server",
		Name:      "messages_stored_total",
		Help:      "Chat messages persisted.",
	})

	ReadsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatroom",
		Subsystem: "server",
		Name:      "reads_applied_total",
		Help:      "Read frames applied to the message store.",
	})

	FramesThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatroom",
		Subsystem: "server",
		Name:      "frames_throttled_total",
		Help:      "Inbound websocket frames dropped by the per-connection limiter.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ConversationEvents,
		ReadAcks,
		HistoryLoads,
		WSConnections,
		MessagesStored,
		ReadsApplied,
		FramesThrottled,
	)
}
