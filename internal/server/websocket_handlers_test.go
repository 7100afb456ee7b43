package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/CoertNiels/Beta/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSClient(t *testing.T, srv *Server, id string) *notifications.Client {
	t.Helper()
	client := &notifications.Client{Hub: srv.hub, ID: id, Send: make(chan []byte, 64)}
	srv.hub.RegisterClient(client)
	return client
}

// nextFrame pops the next outbound frame from the client's send buffer.
func nextFrame(t *testing.T, client *notifications.Client) map[string]any {
	t.Helper()
	select {
	case raw := <-client.Send:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		return decoded
	default:
		t.Fatal("expected an outbound frame, send buffer is empty")
		return nil
	}
}

func assertNoFrame(t *testing.T, client *notifications.Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("unexpected outbound frame: %s", raw)
	default:
	}
}

func register(t *testing.T, srv *Server, client *notifications.Client, username string) {
	t.Helper()
	srv.handleFrame(context.Background(),
		client, []byte(fmt.Sprintf(`{"type":"register","username":%q}`, username)))
	frame := nextFrame(t, client)
	require.Equal(t, "register", frame["type"])
	require.Equal(t, true, frame["success"])
}

func createAndJoinRoom(t *testing.T, srv *Server, client *notifications.Client, name string) uint {
	t.Helper()
	room, err := srv.chatService.CreateRoom(context.Background(), name, client.Username)
	require.NoError(t, err)
	// Creation pushes a room-list frame to every connection.
	frame := nextFrame(t, client)
	require.Equal(t, "room-list", frame["type"])

	srv.handleFrame(context.Background(),
		client, []byte(fmt.Sprintf(`{"type":"join","roomId":%d}`, room.ID)))
	frame = nextFrame(t, client)
	require.Equal(t, "join", frame["type"])
	return room.ID
}

func TestWS_RegisterFlow(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")

	register(t, srv, client, "bob")
	assert.Equal(t, "bob", client.Username)

	// Re-registering the same name succeeds again.
	register(t, srv, client, "bob")
}

func TestWS_RegisterValidation(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")

	srv.handleFrame(context.Background(), client, []byte(`{"type":"register","username":"  "}`))
	frame := nextFrame(t, client)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "Invalid username", frame["error"])
}

func TestWS_MalformedAndUnknownFrames(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")

	srv.handleFrame(context.Background(), client, []byte(`{"type":`))
	frame := nextFrame(t, client)
	assert.Equal(t, "error", frame["type"])

	srv.handleFrame(context.Background(), client, []byte(`{"type":"subscribe"}`))
	frame = nextFrame(t, client)
	assert.Equal(t, "error", frame["type"])
}

func TestWS_JoinUnknownRoom(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")
	register(t, srv, client, "bob")

	srv.handleFrame(context.Background(), client, []byte(`{"type":"join","roomId":42}`))
	frame := nextFrame(t, client)
	assert.Equal(t, "error", frame["type"])
}

func TestWS_JoinReturnsHistory(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")
	register(t, srv, client, "alice")
	roomID := createAndJoinRoom(t, srv, client, "general")

	// Say something, then re-join and expect it in the history.
	srv.handleFrame(context.Background(), client,
		[]byte(fmt.Sprintf(`{"type":"message","roomId":%d,"username":"alice","message":"hello"}`, roomID)))
	broadcast := nextFrame(t, client)
	require.Equal(t, "message", broadcast["type"])

	srv.handleFrame(context.Background(), client,
		[]byte(fmt.Sprintf(`{"type":"join","roomId":%d}`, roomID)))
	frame := nextFrame(t, client)
	require.Equal(t, "join", frame["type"])
	messages, ok := frame["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	first := messages[0].(map[string]any)
	assert.Equal(t, "hello", first["message"])
	assert.Equal(t, "alice", first["username"])
}

func TestWS_MessageBroadcastToRoomMembers(t *testing.T) {
	srv, _ := setupTestServer(t)
	sender := newWSClient(t, srv, "sender")
	register(t, srv, sender, "alice")
	roomID := createAndJoinRoom(t, srv, sender, "general")

	viewer := newWSClient(t, srv, "viewer")
	register(t, srv, viewer, "carol")
	srv.handleFrame(context.Background(), viewer,
		[]byte(fmt.Sprintf(`{"type":"join","roomId":%d}`, roomID)))
	nextFrame(t, viewer) // join ack

	outsider := newWSClient(t, srv, "outsider")
	register(t, srv, outsider, "dave")

	srv.handleFrame(context.Background(), sender,
		[]byte(fmt.Sprintf(`{"type":"message","roomId":%d,"username":"alice","message":"you idiot!!"}`, roomID)))

	for _, client := range []*notifications.Client{sender, viewer} {
		frame := nextFrame(t, client)
		assert.Equal(t, "message", frame["type"])
		assert.Equal(t, "you #####!!", frame["message"])
		assert.Equal(t, "alice", frame["username"])
		assert.Equal(t, float64(roomID), frame["room_id"])
	}
	assertNoFrame(t, outsider)
}

func TestWS_ThreeStrikesBlocksSender(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")
	register(t, srv, client, "bob")
	roomID := createAndJoinRoom(t, srv, client, "general")

	offense := []byte(fmt.Sprintf(`{"type":"message","roomId":%d,"username":"bob","message":"idiot"}`, roomID))

	for strike := 1; strike <= 3; strike++ {
		srv.handleFrame(context.Background(), client, offense)
		frame := nextFrame(t, client)
		require.Equal(t, "message", frame["type"], "strike %d must still broadcast", strike)
		assert.Equal(t, "#####", frame["message"])
	}

	// Crossing the threshold pushes a blocked notice after the broadcast
	// and drops the connection from the hub.
	frame := nextFrame(t, client)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "You are blocked from sending messages", frame["error"])
	assert.Equal(t, 0, srv.hub.RoomSize(roomID))
	_, open := <-client.Send
	assert.False(t, open, "send channel should be closed after the block")
}

func TestWS_BlockedSenderIsDisconnectedOnRetry(t *testing.T) {
	srv, _ := setupTestServer(t)
	client := newWSClient(t, srv, "c1")
	register(t, srv, client, "bob")
	roomID := createAndJoinRoom(t, srv, client, "general")

	offense := []byte(fmt.Sprintf(`{"type":"message","roomId":%d,"username":"bob","message":"idiot"}`, roomID))
	for strike := 1; strike <= 3; strike++ {
		srv.handleFrame(context.Background(), client, offense)
		nextFrame(t, client) // broadcast
	}
	nextFrame(t, client) // blocked notice, connection dropped

	// Coming back on a fresh connection does not help: the send is
	// rejected before anything persists and the connection is dropped
	// again after the rejection notice.
	retry := newWSClient(t, srv, "c2")
	register(t, srv, retry, "bob")
	srv.handleFrame(context.Background(), retry, offense)

	frame := nextFrame(t, retry)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "You are blocked from sending messages", frame["error"])
	_, open := <-retry.Send
	assert.False(t, open, "rejected blocked send should terminate the connection")
	assert.Equal(t, 0, srv.hub.RoomSize(roomID))
}
