package hub

import (
	"context"
	"sync"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/event"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Engine is the chat protocol state machine. It validates inbound events,
// applies their side effects (message persistence, typing state) and decides
// which sessions receive which outbound events.
type Engine struct {
	hub      *Hub
	rooms    RoomStore
	messages MessageStore
	users    UserDirectory
	logger   *zap.Logger

	typingMu sync.RWMutex
	typing   map[string]model.TypingStatus // room id + "/" + user id

	// display names rarely change within a connection's lifetime
	namesMu sync.RWMutex
	names   map[string]string
}

func NewEngine(h *Hub, rooms RoomStore, messages MessageStore, users UserDirectory, logger *zap.Logger) *Engine {
	return &Engine{
		hub:      h,
		rooms:    rooms,
		messages: messages,
		users:    users,
		logger:   logger,
		typing:   make(map[string]model.TypingStatus),
		names:    make(map[string]string),
	}
}

// HandleInbound decodes and dispatches one raw frame from a session.
// Malformed or unknown events are dropped silently; the connection stays
// open.
func (e *Engine) HandleInbound(c *Client, data []byte) {
	if c.State() != StateJoined {
		e.logger.Debug("discarding event outside joined state",
			zap.String("client_id", c.ID),
		)
		return
	}

	ev, err := event.DecodeInbound(data)
	if err != nil {
		e.logger.Debug("dropping malformed inbound event",
			zap.String("client_id", c.ID),
			zap.Error(err),
		)
		return
	}

	switch ev := ev.(type) {
	case event.SendMessage:
		e.handleSendMessage(c, ev)
	case event.Typing:
		e.handleTyping(c, ev)
	}
}

// handleSendMessage persists the message and fans it out. Persistence always
// completes before the broadcast: content that failed to store is never
// echoed to anyone, and the failure is reported to the sender alone.
func (e *Engine) handleSendMessage(c *Client, ev event.SendMessage) {
	messageType := ev.MessageType
	if messageType == "" {
		messageType = model.MessageTypeText
	}
	if !model.ValidClientMessageType(messageType) {
		e.logger.Debug("dropping message with invalid type",
			zap.String("client_id", c.ID),
			zap.String("message_type", messageType),
		)
		return
	}

	roomOID, err := primitive.ObjectIDFromHex(c.roomID)
	if err != nil {
		e.logger.Warn("session bound to malformed room id",
			zap.String("client_id", c.ID),
			zap.String("room_id", c.roomID),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg := &model.Message{
		RoomID:      roomOID,
		SenderID:    c.userID,
		MessageType: messageType,
		Content:     ev.Content,
		CreatedAt:   time.Now().UTC(),
	}

	id, err := e.messages.InsertMessage(ctx, msg)
	if err != nil {
		e.logger.Error("message persistence failed",
			zap.String("client_id", c.ID),
			zap.String("room_id", c.roomID),
			zap.Error(err),
		)
		c.SafeSend(event.NewErrorEvent("send_failed", "message could not be stored"), sendTimeout)
		return
	}

	if err := e.rooms.TouchRoom(ctx, c.roomID); err != nil {
		e.logger.Warn("failed to touch room after message",
			zap.String("room_id", c.roomID),
			zap.Error(err),
		)
	}

	payload := event.MessagePayload{
		ID:          id,
		SenderID:    c.userID,
		SenderName:  e.displayName(ctx, c.userID),
		MessageType: messageType,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
		IsRead:      false,
	}

	// The sender is included: it is waiting on the server-assigned id and
	// timestamp. This is the one broadcast that is not exclude-self.
	e.hub.Broadcast(c.roomID, event.NewMessageEvent(payload), "")
}

// handleTyping broadcasts the sender's typing state to the rest of the room.
// Nothing is persisted; the sender never receives its own typing echo.
func (e *Engine) handleTyping(c *Client, ev event.Typing) {
	e.setTyping(c.roomID, c.userID, ev.IsTyping)
	e.hub.Broadcast(c.roomID, event.NewTypingEvent(c.userID, ev.IsTyping), c.ID)
}

func (e *Engine) setTyping(roomID, userID string, isTyping bool) {
	e.typingMu.Lock()
	defer e.typingMu.Unlock()
	e.typing[roomID+"/"+userID] = model.TypingStatus{
		RoomID:    roomID,
		UserID:    userID,
		IsTyping:  isTyping,
		UpdatedAt: time.Now().UTC(),
	}
}

// TypingSnapshot returns the participants currently marked as typing.
// Indicators older than staleAfter are skipped; a client that vanished
// mid-keystroke should not show as typing forever.
func (e *Engine) TypingSnapshot(staleAfter time.Duration) []model.TypingStatus {
	cutoff := time.Now().Add(-staleAfter)

	e.typingMu.RLock()
	defer e.typingMu.RUnlock()

	statuses := make([]model.TypingStatus, 0, len(e.typing))
	for _, ts := range e.typing {
		if !ts.IsTyping || ts.UpdatedAt.Before(cutoff) {
			continue
		}
		statuses = append(statuses, ts)
	}
	return statuses
}

func (e *Engine) displayName(ctx context.Context, userID string) string {
	e.namesMu.RLock()
	name, ok := e.names[userID]
	e.namesMu.RUnlock()
	if ok {
		return name
	}

	name, err := e.users.ResolveDisplayName(ctx, userID)
	if err != nil {
		e.logger.Debug("display name lookup failed, falling back to id",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return userID
	}

	e.namesMu.Lock()
	e.names[userID] = name
	e.namesMu.Unlock()
	return name
}
