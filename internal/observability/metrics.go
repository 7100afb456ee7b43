// Package observability provides logging, metrics, and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessageThroughput counts messages processed per room and outcome.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_message_throughput_total",
		Help: "Total number of messages processed",
	}, []string{"room_id", "outcome"})

	// CensoredMessagesTotal counts messages in which the censor masked at
	// least one prohibited word.
	CensoredMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_censored_messages_total",
		Help: "Total number of messages containing prohibited words",
	})

	// UsersBlockedTotal counts users that crossed the block threshold.
	UsersBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_users_blocked_total",
		Help: "Total number of users blocked by the abuse escalation",
	})

	// BlockedSendAttemptsTotal counts sends rejected because the user is blocked.
	BlockedSendAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_blocked_send_attempts_total",
		Help: "Total number of send attempts rejected for blocked users",
	})

	// WebSocketRoomConnections is the gauge of connections per room.
	WebSocketRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chat_websocket_room_connections",
		Help: "Number of WebSocket connections per room",
	}, []string{"room_id"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
