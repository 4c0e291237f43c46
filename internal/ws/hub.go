// Package ws is the realtime gateway: it maps verified connections
// into per-user rooms and pushes service events to them.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sociogram/chat-service/internal/metrics"
)

// Envelope is the wire frame for every pushed event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	At      int64  `json:"at"`
}

// Hub holds the rooms. A room is keyed by user id; every live
// connection of that user joins the same room, which is what gives
// multi-device delivery.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

func (h *Hub) Subscribe(userID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[userID]; !ok {
		h.rooms[userID] = make(map[*Client]struct{})
	}
	h.rooms[userID][c] = struct{}{}
	c.userID = userID
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.rooms[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, c.userID)
		}
	}
}

// EmitToUser delivers an event to every connection in the user's room.
// No room means no delivery; the durable record is the message itself,
// so nothing is queued.
func (h *Hub) EmitToUser(userID, eventType string, payload any) {
	b, err := json.Marshal(Envelope{Type: eventType, Payload: payload, At: time.Now().Unix()})
	if err != nil {
		h.log.Warn("marshal realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		if !c.enqueue(b) {
			metrics.RealtimeDropped.Inc()
		}
	}
}

// EmitToAll broadcasts to every subscribed connection.
func (h *Hub) EmitToAll(eventType string, payload any) {
	b, err := json.Marshal(Envelope{Type: eventType, Payload: payload, At: time.Now().Unix()})
	if err != nil {
		h.log.Warn("marshal realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.rooms {
		for c := range set {
			if !c.enqueue(b) {
				metrics.RealtimeDropped.Inc()
			}
		}
	}
}

// ConnectionsFor reports the number of live connections in a room.
func (h *Hub) ConnectionsFor(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
