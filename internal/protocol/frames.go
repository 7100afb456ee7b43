// Package protocol defines the JSON frames exchanged over the chat
// websocket. Inbound frames form a closed set dispatched on the "type"
// field; outbound frames are plain structs serialized as-is.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CoertNiels/Beta/internal/models"
)

const (
	TypeRegister = "register"
	TypeJoin     = "join"
	TypeMessage  = "message"
	TypeError    = "error"
	TypeRoomList = "room-list"
)

// Inbound is implemented by every client-originated frame.
type Inbound interface {
	inbound()
}

type RegisterFrame struct {
	Username string `json:"username"`
}

type JoinFrame struct {
	RoomID uint `json:"roomId"`
}

type MessageFrame struct {
	RoomID   uint   `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (RegisterFrame) inbound() {}
func (JoinFrame) inbound()     {}
func (MessageFrame) inbound()  {}

type envelope struct {
	Type string `json:"type"`
}

// ErrUnknownType reports a frame whose "type" is outside the closed set.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown frame type %q", e.Type)
}

// Decode parses a raw websocket payload into its typed inbound frame.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Type {
	case TypeRegister:
		var frame RegisterFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("malformed register frame: %w", err)
		}
		return frame, nil
	case TypeJoin:
		var frame JoinFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("malformed join frame: %w", err)
		}
		return frame, nil
	case TypeMessage:
		var frame MessageFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("malformed message frame: %w", err)
		}
		return frame, nil
	default:
		return nil, &ErrUnknownType{Type: env.Type}
	}
}

// Outbound frames. Field names and order match what clients expect on
// the wire, so changes here are breaking.

type RegisterAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type JoinAck struct {
	Type     string           `json:"type"`
	RoomID   uint             `json:"roomId"`
	Messages []models.Message `json:"messages"`
}

type MessageEvent struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	RoomID    uint   `json:"room_id"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type RoomListEvent struct {
	Type  string        `json:"type"`
	Rooms []models.Room `json:"rooms"`
}

func NewRegisterAck() RegisterAck {
	return RegisterAck{Type: TypeRegister, Success: true}
}

func NewJoinAck(roomID uint, messages []models.Message) JoinAck {
	if messages == nil {
		messages = []models.Message{}
	}
	return JoinAck{Type: TypeJoin, RoomID: roomID, Messages: messages}
}

func NewMessageEvent(roomID uint, username, message string, ts time.Time) MessageEvent {
	return MessageEvent{
		Type:      TypeMessage,
		Username:  username,
		Message:   message,
		Timestamp: ts.UTC().Format(time.RFC3339),
		RoomID:    roomID,
	}
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: message}
}

func NewErrorEventWithDetails(message, details string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: message, Details: details}
}

func NewRoomListEvent(rooms []models.Room) RoomListEvent {
	if rooms == nil {
		rooms = []models.Room{}
	}
	return RoomListEvent{Type: TypeRoomList, Rooms: rooms}
}

// ErrorFromApp maps a service error onto its wire representation
// without leaking wrapped internals.
func ErrorFromApp(err error) ErrorEvent {
	if appErr, ok := err.(*models.AppError); ok {
		if appErr.Details != "" {
			return NewErrorEventWithDetails(appErr.Message, appErr.Details)
		}
		return NewErrorEvent(appErr.Message)
	}
	return NewErrorEvent("An unexpected error occurred. Please try again later.")
}
