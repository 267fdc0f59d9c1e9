package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Wire-level event types. The "type" field is the discriminator on both
// directions of the socket.
const (
	TypeMessage    = "message"
	TypeTyping     = "typing"
	TypeUserStatus = "user_status"
	TypeError      = "error"
)

// Presence states carried by user_status events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Inbound is a decoded client-to-server event. Exactly two kinds exist on
// the wire; anything else fails decoding with ErrUnknownEvent.
type Inbound interface {
	inbound()
}

// SendMessage asks the server to persist and fan out a chat message.
type SendMessage struct {
	MessageType string
	Content     string
}

// Typing reports the sender's typing state to the rest of the room.
type Typing struct {
	IsTyping bool
}

func (SendMessage) inbound() {}
func (Typing) inbound()      {}

// inboundEnvelope matches the flat JSON shape clients send. Fields not
// belonging to the decoded kind are ignored.
type inboundEnvelope struct {
	Type        string `json:"type"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
	IsTyping    bool   `json:"is_typing"`
}

// DecodeInbound parses a raw frame into one of the Inbound variants.
func DecodeInbound(data []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode inbound event: %w", err)
	}

	switch env.Type {
	case TypeMessage:
		return SendMessage{
			MessageType: env.MessageType,
			Content:     env.Content,
		}, nil
	case TypeTyping:
		return Typing{IsTyping: env.IsTyping}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

// Outbound is a server-to-client event ready for JSON serialization.
type Outbound interface {
	outbound()
}

// MessagePayload is the server-confirmed view of a persisted message,
// including the generated id and timestamp the sender is waiting for.
type MessagePayload struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	FileURL     string    `json:"file_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	IsRead      bool      `json:"is_read"`
}

type MessageEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type UserStatusEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// ErrorEvent is delivered to a single session only, never broadcast.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (MessageEvent) outbound()    {}
func (TypingEvent) outbound()     {}
func (UserStatusEvent) outbound() {}
func (ErrorEvent) outbound()      {}

func NewMessageEvent(payload MessagePayload) MessageEvent {
	return MessageEvent{Type: TypeMessage, Message: payload}
}

func NewTypingEvent(userID string, isTyping bool) TypingEvent {
	return TypingEvent{Type: TypeTyping, UserID: userID, IsTyping: isTyping}
}

func NewUserStatusEvent(userID, status string) UserStatusEvent {
	return UserStatusEvent{Type: TypeUserStatus, UserID: userID, Status: status}
}

func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Code: code, Message: message}
}
