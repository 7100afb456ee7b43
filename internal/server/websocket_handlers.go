package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CoertNiels/Beta/internal/middleware"
	"github.com/CoertNiels/Beta/internal/models"
	"github.com/CoertNiels/Beta/internal/notifications"
	"github.com/CoertNiels/Beta/internal/observability"
	"github.com/CoertNiels/Beta/internal/protocol"
	"github.com/CoertNiels/Beta/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

var wsLogger = observability.NewWSLogger("room hub")

// WebSocketUpgrade rejects plain HTTP requests on the websocket route.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler handles the chat websocket lifecycle: register the
// connection with the hub, dispatch inbound frames, and tear down on
// disconnect.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		client := s.hub.Register(conn)
		wsLogger.LogConnect(ctx, client.ID)

		client.IncomingHandler = func(c *notifications.Client, raw []byte) {
			s.handleFrame(ctx, c, raw)
		}

		go client.WritePump()
		client.ReadPump()

		wsLogger.LogDisconnect(ctx, client.Username, "connection closed")
	})
}

func (s *Server) handleFrame(ctx context.Context, client *notifications.Client, raw []byte) {
	frame, err := protocol.Decode(raw)
	if err != nil {
		wsLogger.LogError(ctx, client.Username, err, "unknown")
		s.sendEvent(client, protocol.NewErrorEvent("Invalid message format"))
		return
	}

	switch f := frame.(type) {
	case protocol.RegisterFrame:
		s.handleRegister(ctx, client, f)
	case protocol.JoinFrame:
		s.handleJoin(ctx, client, f)
	case protocol.MessageFrame:
		s.handleMessage(ctx, client, f)
	}
}

func (s *Server) handleRegister(ctx context.Context, client *notifications.Client, frame protocol.RegisterFrame) {
	wsLogger.LogMessage(ctx, frame.Username, protocol.TypeRegister)

	user, err := s.chatService.RegisterUser(ctx, frame.Username)
	if err != nil {
		wsLogger.LogError(ctx, frame.Username, err, protocol.TypeRegister)
		s.sendEvent(client, protocol.ErrorFromApp(err))
		return
	}

	client.Username = user.Username
	s.sendEvent(client, protocol.NewRegisterAck())
}

func (s *Server) handleJoin(ctx context.Context, client *notifications.Client, frame protocol.JoinFrame) {
	wsLogger.LogMessage(ctx, client.Username, protocol.TypeJoin)

	messages, err := s.chatService.RoomHistory(ctx, frame.RoomID)
	if err != nil {
		wsLogger.LogError(ctx, client.Username, err, protocol.TypeJoin)
		s.sendEvent(client, protocol.ErrorFromApp(err))
		return
	}

	s.hub.JoinRoom(client, frame.RoomID)
	s.sendEvent(client, protocol.NewJoinAck(frame.RoomID, messages))
}

func (s *Server) handleMessage(ctx context.Context, client *notifications.Client, frame protocol.MessageFrame) {
	wsLogger.LogMessage(ctx, frame.Username, protocol.TypeMessage)

	// Same budget as the HTTP rate limits: 30 messages per minute per user.
	limitKey := fmt.Sprintf("user:%s", frame.Username)
	allowed, rlErr := middleware.CheckRateLimit(ctx, s.redis, "send_message", limitKey, 30, time.Minute)
	if rlErr != nil {
		// Fail open when the limiter store is unavailable.
		allowed = true
	}
	if !allowed {
		s.sendEvent(client, protocol.NewErrorEvent("Rate limit exceeded. Please wait a moment."))
		return
	}

	result, err := s.chatService.SubmitMessage(ctx, service.SubmitMessageInput{
		RoomID:   frame.RoomID,
		Username: frame.Username,
		Message:  frame.Message,
	})
	if err != nil {
		wsLogger.LogError(ctx, frame.Username, err, protocol.TypeMessage)
		s.sendEvent(client, protocol.ErrorFromApp(err))
		// A blocked sender gets the rejection notice and then loses the
		// connection, same as the send that crossed the threshold.
		if models.IsCode(err, "FORBIDDEN") {
			s.hub.CloseClient(client)
		}
		return
	}

	// The service already broadcast the (censored) message to the room.
	// If this offense crossed the block threshold, tell the offender and
	// drop their connection.
	if result.JustBlocked {
		s.sendEvent(client, protocol.NewErrorEvent("You are blocked from sending messages"))
		s.hub.CloseClient(client)
	}
}

func (s *Server) sendEvent(client *notifications.Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		wsLogger.LogError(context.Background(), client.Username, err, "marshal")
		return
	}
	client.TrySend(payload)
}
