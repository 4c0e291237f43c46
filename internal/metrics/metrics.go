package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_created_total",
		Help: "Messages persisted by the chat service.",
	})
	ChatsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_chats_created_total",
		Help: "Chat create requests, including idempotent hits.",
	})
	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_realtime_dropped_total",
		Help: "Realtime events dropped because a client buffer was full.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
