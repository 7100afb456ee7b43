// Package notifications provides real-time delivery of chat events to
// connected websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/CoertNiels/Beta/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// RoomHub is the connection directory for chat rooms. Each websocket
// connection views at most one room at a time; joining a new room
// replaces the previous membership.
type RoomHub struct {
	mu sync.RWMutex

	// Map: connID -> Client, every live connection
	clients map[string]*Client

	// Map: roomID -> set of connIDs viewing that room
	rooms map[uint]map[string]struct{}

	// Map: connID -> roomID the connection currently views
	currentRoom map[string]uint
}

// Name returns a human-readable identifier for this hub.
func (h *RoomHub) Name() string { return "room hub" }

// NewRoomHub creates a new RoomHub instance
func NewRoomHub() *RoomHub {
	return &RoomHub{
		clients:     make(map[string]*Client),
		rooms:       make(map[uint]map[string]struct{}),
		currentRoom: make(map[string]uint),
	}
}

// Register creates a Client for a fresh websocket connection and adds
// it to the directory. The connection is not in any room yet.
func (h *RoomHub) Register(conn *websocket.Conn) *Client {
	client := NewClient(h, conn, uuid.NewString())
	h.RegisterClient(client)
	return client
}

// RegisterClient adds a pre-built client to the directory.
func (h *RoomHub) RegisterClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Set(float64(total))
	log.Printf("RoomHub: Registered connection %s (active: %d)", client.ID, total)
}

// UnregisterClient removes a connection and its room membership.
func (h *RoomHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client.ID]; !ok {
		// Already removed
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	h.leaveCurrentRoomLocked(client.ID)
	total := len(h.clients)

	h.mu.Unlock()

	close(client.Send)
	observability.WebSocketConnectionsTotal.Set(float64(total))
	log.Printf("RoomHub: Unregistered connection %s (active: %d)", client.ID, total)
}

// JoinRoom moves a connection into a room, leaving any room it was
// viewing before.
func (h *RoomHub) JoinRoom(client *Client, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		log.Printf("RoomHub: Connection %s not registered, cannot join room %d", client.ID, roomID)
		return
	}

	h.leaveCurrentRoomLocked(client.ID)

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]struct{})
	}
	h.rooms[roomID][client.ID] = struct{}{}
	h.currentRoom[client.ID] = roomID

	observability.WebSocketRoomConnections.WithLabelValues(fmt.Sprintf("%d", roomID)).
		Set(float64(len(h.rooms[roomID])))
}

// leaveCurrentRoomLocked detaches a connection from whatever room it
// views. Callers must hold h.mu.
func (h *RoomHub) leaveCurrentRoomLocked(connID string) {
	roomID, ok := h.currentRoom[connID]
	if !ok {
		return
	}
	delete(h.currentRoom, connID)

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	observability.WebSocketRoomConnections.WithLabelValues(fmt.Sprintf("%d", roomID)).
		Set(float64(len(members)))
}

// CurrentRoom returns the room a connection is viewing, if any.
func (h *RoomHub) CurrentRoom(client *Client) (uint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	roomID, ok := h.currentRoom[client.ID]
	return roomID, ok
}

// RoomSize returns the number of connections viewing a room.
func (h *RoomHub) RoomSize(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom sends an event to every connection viewing a room,
// including the sender's own connection.
func (h *RoomHub) BroadcastToRoom(roomID uint, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("RoomHub: Failed to marshal room event: %v", err)
		return
	}

	h.mu.RLock()
	members, ok := h.rooms[roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	recipients := make([]*Client, 0, len(members))
	for connID := range members {
		if client, live := h.clients[connID]; live {
			recipients = append(recipients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.TrySend(payload)
	}
}

// BroadcastToAll sends an event to every live connection regardless of
// room membership. Used for room-list updates.
func (h *RoomHub) BroadcastToAll(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("RoomHub: Failed to marshal global event: %v", err)
		return
	}

	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.TrySend(payload)
	}
}

// CloseClient tears the connection down after delivering whatever is
// queued on the Send channel. Unregistering closes the channel, so
// WritePump drains the buffer and then emits the close frame. Used when
// a blocked user must be disconnected.
func (h *RoomHub) CloseClient(client *Client) {
	client.closeMessage = websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "blocked")
	h.UnregisterClient(client)
}

// Shutdown gracefully closes all websocket connections
func (h *RoomHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for connID, client := range h.clients {
		if client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"error","error":"Server is shutting down"}`)); err != nil {
			log.Printf("failed to write shutdown message for conn %s: %v", connID, err)
		}
		if err := client.Conn.Close(); err != nil {
			log.Printf("failed to close websocket for conn %s: %v", connID, err)
		}
	}

	h.clients = make(map[string]*Client)
	h.rooms = make(map[uint]map[string]struct{})
	h.currentRoom = make(map[string]uint)

	return nil
}
