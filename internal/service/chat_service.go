// Package service provides the chat application's business logic.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/CoertNiels/Beta/internal/models"
	"github.com/CoertNiels/Beta/internal/moderation"
	"github.com/CoertNiels/Beta/internal/observability"
	"github.com/CoertNiels/Beta/internal/protocol"
	"github.com/CoertNiels/Beta/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxUsernameLen = 64
	maxMessageLen  = 10000 // 10K characters
	maxRoomNameLen = 128
)

// Broadcaster is the fanout surface the coordinator needs from the hub.
type Broadcaster interface {
	BroadcastToRoom(roomID uint, event any)
	BroadcastToAll(event any)
}

// ChatService coordinates registration, rooms and the moderated message
// pipeline.
type ChatService struct {
	userRepo     repository.UserRepository
	roomRepo     repository.RoomRepository
	messageRepo  repository.MessageRepository
	engine       *moderation.Engine
	escalator    *moderation.Escalator
	hub          Broadcaster
	historyLimit int
}

// NewChatService returns a new ChatService.
func NewChatService(
	userRepo repository.UserRepository,
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	engine *moderation.Engine,
	escalator *moderation.Escalator,
	hub Broadcaster,
	historyLimit int,
) *ChatService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ChatService{
		userRepo:     userRepo,
		roomRepo:     roomRepo,
		messageRepo:  messageRepo,
		engine:       engine,
		escalator:    escalator,
		hub:          hub,
		historyLimit: historyLimit,
	}
}

// RegisterUser upserts a username. Re-registering an existing name is
// not an error; it refreshes last_seen.
func (s *ChatService) RegisterUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationErrorWithDetails("Invalid username", "username is required")
	}
	if len(username) > maxUsernameLen {
		return nil, models.NewValidationErrorWithDetails("Invalid username",
			fmt.Sprintf("username must be at most %d characters", maxUsernameLen))
	}
	return s.userRepo.Register(ctx, username)
}

// ListRooms returns every room, oldest first.
func (s *ChatService) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.roomRepo.List(ctx)
}

// CreateRoom creates a room on behalf of a user and pushes the updated
// room list to every live connection.
func (s *ChatService) CreateRoom(ctx context.Context, name, username string) (*models.Room, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	if name == "" {
		return nil, models.NewValidationErrorWithDetails("Invalid room name", "name is required")
	}
	if len(name) > maxRoomNameLen {
		return nil, models.NewValidationErrorWithDetails("Invalid room name",
			fmt.Sprintf("name must be at most %d characters", maxRoomNameLen))
	}
	if username == "" {
		return nil, models.NewValidationErrorWithDetails("Invalid username", "username is required")
	}

	blocked, err := s.escalator.IsBlocked(ctx, username)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.NewForbiddenError("You are blocked from creating rooms")
	}

	room := &models.Room{Name: name, CreatedBy: username}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	if rooms, lerr := s.roomRepo.List(ctx); lerr == nil {
		s.hub.BroadcastToAll(protocol.NewRoomListEvent(rooms))
	}

	return room, nil
}

// RoomHistory returns the most recent messages for a room in ascending
// order. Text is censored again at read time so rows that predate a
// word-list change never reach clients raw.
func (s *ChatService) RoomHistory(ctx context.Context, roomID uint) ([]models.Message, error) {
	if roomID == 0 {
		return nil, models.NewValidationErrorWithDetails("Invalid room", "roomId is required")
	}

	exists, err := s.roomRepo.Exists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Room", roomID)
	}

	messages, err := s.messageRepo.ListRecent(ctx, roomID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Text = s.engine.Censor(messages[i].Text)
	}
	return messages, nil
}

// SubmitMessageInput carries a message frame through the pipeline.
type SubmitMessageInput struct {
	RoomID   uint
	Username string
	Message  string
}

// SubmitResult reports what the pipeline did with a message.
type SubmitResult struct {
	Event       protocol.MessageEvent
	Censored    bool
	BlockCount  int
	JustBlocked bool
}

// SubmitMessage runs the full pipeline: validate, reject blocked
// senders before anything persists, censor, persist the censored text
// only, escalate offenders, then broadcast to the room. The broadcast
// happens even for the offense that crosses the block threshold; the
// caller closes the connection afterwards when JustBlocked is set.
func (s *ChatService) SubmitMessage(ctx context.Context, in SubmitMessageInput) (*SubmitResult, error) {
	span, ctx := observability.NewSpan(ctx, "chat.submit_message")
	defer span.End()

	if in.RoomID == 0 {
		return nil, models.NewValidationErrorWithDetails("Invalid message", "roomId is required")
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return nil, models.NewValidationErrorWithDetails("Invalid message", "username is required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, models.NewValidationErrorWithDetails("Invalid message", "message is required")
	}
	if len(in.Message) > maxMessageLen {
		return nil, models.NewValidationErrorWithDetails("Invalid message",
			fmt.Sprintf("message must be at most %d characters", maxMessageLen))
	}

	roomLabel := fmt.Sprintf("%d", in.RoomID)
	span.AddAttributes(
		attribute.Int64("chat.room_id", int64(in.RoomID)),
		attribute.String("chat.username", in.Username),
	)

	blocked, err := s.escalator.IsBlocked(ctx, in.Username)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if blocked {
		observability.BlockedSendAttemptsTotal.Inc()
		observability.MessageThroughput.WithLabelValues(roomLabel, "rejected").Inc()
		return nil, models.NewForbiddenError("You are blocked from sending messages")
	}

	exists, err := s.roomRepo.Exists(ctx, in.RoomID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Room", in.RoomID)
	}

	censored, offended := s.engine.CensorDetect(in.Message)

	msg := &models.Message{
		RoomID:    in.RoomID,
		Username:  in.Username,
		Text:      censored,
		Timestamp: time.Now(),
	}
	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		span.SetError(err)
		observability.MessageThroughput.WithLabelValues(roomLabel, "error").Inc()
		return nil, err
	}

	result := &SubmitResult{
		Event:    protocol.NewMessageEvent(in.RoomID, in.Username, censored, msg.Timestamp),
		Censored: offended,
	}

	if offended {
		observability.CensoredMessagesTotal.Inc()
		outcome, oerr := s.escalator.RecordOffense(ctx, in.Username)
		if oerr != nil {
			// The message is already persisted; an escalation failure must
			// not swallow it. The offense count is retried on the next one.
			span.SetError(oerr)
			log.Printf("ChatService: failed to record offense for %s: %v", in.Username, oerr)
		} else {
			result.BlockCount = outcome.BlockCount
			result.JustBlocked = outcome.JustBlocked
			if outcome.JustBlocked {
				observability.UsersBlockedTotal.Inc()
			}
		}
	}

	// The offending message was already accepted and persisted, so it
	// still reaches the room before any connection teardown.
	s.hub.BroadcastToRoom(in.RoomID, result.Event)
	observability.MessageThroughput.WithLabelValues(roomLabel, "delivered").Inc()

	return result, nil
}
