// Package broadcast provides WebSocket event fan-out to connected
// dashboard observers.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// defaultWriteTimeout bounds how long a single slow observer can block a
// broadcast write.
const defaultWriteTimeout = 5 * time.Second

// Keep-alive message types exchanged with observers.
const (
	MessagePing = "ping"
	MessagePong = "pong"
)

// Event is the envelope every observer receives.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventBroadcaster manages WebSocket connections and broadcasts gate events
// to every connected observer. Delivery is fire-and-forget: a failed write
// is logged and the connection left for its read loop to clean up.
type EventBroadcaster struct {
	mu sync.RWMutex
	// Per-connection write lock: gorilla conns do not support
	// concurrent writers.
	conns map[*websocket.Conn]*sync.Mutex

	writeTimeout time.Duration
	metrics      *Metrics
	logger       *slog.Logger
}

// NewEventBroadcaster creates a new event broadcaster. metrics may be nil
// to disable instrumentation (tests).
func NewEventBroadcaster(metrics *Metrics, logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		conns:        make(map[*websocket.Conn]*sync.Mutex),
		writeTimeout: defaultWriteTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

// Register adds a WebSocket connection to the observer set.
func (b *EventBroadcaster) Register(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conns[conn] = &sync.Mutex{}
	if b.metrics != nil {
		b.metrics.SetConnected(len(b.conns))
	}
}

// Unregister removes a WebSocket connection from the observer set.
func (b *EventBroadcaster) Unregister(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.conns, conn)
	if b.metrics != nil {
		b.metrics.SetConnected(len(b.conns))
	}
}

// Broadcast sends an event to all connected observers.
func (b *EventBroadcaster) Broadcast(eventType string, payload any) {
	// Serialize the event once
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		b.logger.Error("failed to marshal broadcast event", "error", err, "event_type", eventType)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for conn, writeMu := range b.conns {
		if err := b.write(conn, writeMu, data); err != nil {
			b.logger.Warn("failed to send event to observer",
				"error", err,
				"event_type", eventType,
			)
			if b.metrics != nil {
				b.metrics.IncDeliveryFailure(eventType)
			}
			// Connection will be cleaned up when its read loop exits
			continue
		}
		if b.metrics != nil {
			b.metrics.IncDelivery(eventType)
		}
	}
}

// Pong answers an observer's keep-alive ping.
func (b *EventBroadcaster) Pong(conn *websocket.Conn) {
	b.mu.RLock()
	writeMu, exists := b.conns[conn]
	b.mu.RUnlock()
	if !exists {
		return
	}

	data, err := json.Marshal(Event{Type: MessagePong})
	if err != nil {
		return
	}
	if err := b.write(conn, writeMu, data); err != nil {
		b.logger.Warn("failed to answer keep-alive ping", "error", err)
	}
}

// ConnectionCount returns the number of connected observers.
func (b *EventBroadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

func (b *EventBroadcaster) write(conn *websocket.Conn, writeMu *sync.Mutex, data []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(b.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
