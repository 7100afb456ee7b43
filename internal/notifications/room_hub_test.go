package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
)

func newTestClient(hub *RoomHub, id string) *Client {
	return &Client{Hub: hub, ID: id, Send: make(chan []byte, 10)}
}

func TestRoomHub_RegisterUnregister(t *testing.T) {
	hub := NewRoomHub()
	client := newTestClient(hub, "c1")

	hub.RegisterClient(client)
	hub.mu.RLock()
	assert.Contains(t, hub.clients, "c1")
	hub.mu.RUnlock()

	hub.UnregisterClient(client)
	hub.mu.RLock()
	assert.NotContains(t, hub.clients, "c1")
	hub.mu.RUnlock()

	// Unregistering twice is a no-op
	hub.UnregisterClient(client)

	_ = hub.Shutdown(context.Background())
}

func TestRoomHub_JoinReplacesPreviousRoom(t *testing.T) {
	hub := NewRoomHub()
	client := newTestClient(hub, "c1")
	hub.RegisterClient(client)

	hub.JoinRoom(client, 1)
	assert.Equal(t, 1, hub.RoomSize(1))

	hub.JoinRoom(client, 2)
	assert.Equal(t, 0, hub.RoomSize(1))
	assert.Equal(t, 1, hub.RoomSize(2))

	roomID, ok := hub.CurrentRoom(client)
	assert.True(t, ok)
	assert.Equal(t, uint(2), roomID)

	_ = hub.Shutdown(context.Background())
}

func TestRoomHub_BroadcastScopedToRoom(t *testing.T) {
	hub := NewRoomHub()
	member := newTestClient(hub, "member")
	outsider := newTestClient(hub, "outsider")
	hub.RegisterClient(member)
	hub.RegisterClient(outsider)
	hub.JoinRoom(member, 101)
	hub.JoinRoom(outsider, 999)

	hub.BroadcastToRoom(101, map[string]string{"type": "message", "message": "hello"})

	select {
	case raw := <-member.Send:
		var decoded map[string]string
		assert.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "hello", decoded["message"])
	default:
		t.Fatal("room member did not receive broadcast")
	}

	select {
	case <-outsider.Send:
		t.Fatal("connection outside the room unexpectedly received broadcast")
	default:
	}

	_ = hub.Shutdown(context.Background())
}

func TestRoomHub_BroadcastToAllReachesEveryConnection(t *testing.T) {
	hub := NewRoomHub()
	inRoom := newTestClient(hub, "in-room")
	lobby := newTestClient(hub, "lobby")
	hub.RegisterClient(inRoom)
	hub.RegisterClient(lobby)
	hub.JoinRoom(inRoom, 1)
	// lobby never joins a room

	hub.BroadcastToAll(map[string]string{"type": "room-list"})

	for _, client := range []*Client{inRoom, lobby} {
		select {
		case <-client.Send:
		default:
			t.Fatalf("connection %s did not receive global broadcast", client.ID)
		}
	}

	_ = hub.Shutdown(context.Background())
}

func TestRoomHub_UnregisterCleansRoomMembership(t *testing.T) {
	hub := NewRoomHub()
	client := newTestClient(hub, "c1")
	hub.RegisterClient(client)
	hub.JoinRoom(client, 5)

	hub.UnregisterClient(client)

	assert.Equal(t, 0, hub.RoomSize(5))
	_, ok := hub.CurrentRoom(client)
	assert.False(t, ok)

	// Broadcasting to the emptied room must not panic or deliver
	hub.BroadcastToRoom(5, map[string]string{"type": "message"})

	_ = hub.Shutdown(context.Background())
}

func TestRoomHub_CloseClientDrainsQueuedFramesFirst(t *testing.T) {
	hub := NewRoomHub()
	client := newTestClient(hub, "c1")
	hub.RegisterClient(client)
	hub.JoinRoom(client, 7)

	client.TrySend([]byte(`{"type":"error","error":"You are blocked from sending messages"}`))
	hub.CloseClient(client)

	// The notice queued before the close is still delivered; only then
	// does the receiver observe the channel close.
	raw, open := <-client.Send
	assert.True(t, open)
	assert.Contains(t, string(raw), "blocked")
	_, open = <-client.Send
	assert.False(t, open, "send channel should be closed after the drain")

	// The connection is fully out of the directory.
	assert.Equal(t, 0, hub.RoomSize(7))
	hub.mu.RLock()
	assert.NotContains(t, hub.clients, "c1")
	hub.mu.RUnlock()

	// The close frame the write loop will emit carries the policy code.
	assert.Equal(t,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "blocked"),
		client.closeMessage)
}

func TestRoomHub_TrySendAfterUnregisterDoesNotPanic(t *testing.T) {
	hub := NewRoomHub()
	client := newTestClient(hub, "c1")
	hub.RegisterClient(client)
	hub.UnregisterClient(client)

	// Send channel is closed now; TrySend must swallow the panic.
	client.TrySend([]byte(`{"type":"message"}`))
}
