package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/db"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"
	"github.com/mihirKIG/Service-Hub-Backend/internal/repo"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrNotParticipant = errors.New("user is not a participant of this room")
	ErrNoProvider     = errors.New("at least one participant must be a provider")
	ErrSelfChat       = errors.New("cannot open a chat room with yourself")
)

var validate = validator.New()

// CreateRoomInput opens (or returns) the room between the caller and
// other_user_id. Exactly one side must be a provider.
type CreateRoomInput struct {
	OtherUserID string  `json:"other_user_id" validate:"required"`
	BookingID   *string `json:"booking_id"`
}

// SendMessageInput is the REST path for sending without a live connection.
type SendMessageInput struct {
	MessageType string  `json:"message_type" validate:"required,oneof=text image file"`
	Content     string  `json:"content" validate:"required"`
	FileURL     *string `json:"file_url" validate:"omitempty,url"`
}

// RoomSummary is a room decorated for the room list: the other participant's
// name and the caller's unread count.
type RoomSummary struct {
	Room        model.ChatRoom `json:"room"`
	OtherUserID string         `json:"otherUserId"`
	OtherName   string         `json:"otherName"`
	UnreadCount int64          `json:"unreadCount"`
}

type ChatService interface {
	ListRooms(ctx context.Context, userID string) ([]RoomSummary, error)
	GetOrCreateRoom(ctx context.Context, userID string, input CreateRoomInput) (*model.ChatRoom, bool, error)
	GetRoom(ctx context.Context, userID, roomID string) (*model.ChatRoom, error)
	ListMessages(ctx context.Context, userID, roomID string, page int64, ack bool) (*db.PaginatedResult[model.Message], error)
	SendMessage(ctx context.Context, userID, roomID string, input SendMessageInput) (*model.Message, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, roomID string) (int64, error)
	DeleteMessage(ctx context.Context, userID, messageID string) error
}

type chatService struct {
	rooms    repo.RoomRepository
	messages repo.MessageRepository
	users    repo.UserRepository
	logger   *zap.Logger
}

func NewChatService(rooms repo.RoomRepository, messages repo.MessageRepository, users repo.UserRepository, logger *zap.Logger) ChatService {
	return &chatService{
		rooms:    rooms,
		messages: messages,
		users:    users,
		logger:   logger,
	}
}

func (s *chatService) ListRooms(ctx context.Context, userID string) ([]RoomSummary, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := lo.Map(rooms, func(room model.ChatRoom, _ int) RoomSummary {
		otherID := room.OtherParticipant(userID)

		otherName, err := s.users.ResolveDisplayName(ctx, otherID)
		if err != nil {
			otherName = otherID
		}

		unread, err := s.messages.UnreadCount(ctx, []primitive.ObjectID{room.ID}, userID)
		if err != nil {
			s.logger.Warn("unread count failed for room",
				zap.String("room_id", room.ID.Hex()),
				zap.Error(err),
			)
			unread = 0
		}

		return RoomSummary{
			Room:        room,
			OtherUserID: otherID,
			OtherName:   otherName,
			UnreadCount: unread,
		}
	})

	return summaries, nil
}

// GetOrCreateRoom resolves which side of the pair is the provider, then
// performs the idempotent get-or-create keyed on (customer, provider).
func (s *chatService) GetOrCreateRoom(ctx context.Context, userID string, input CreateRoomInput) (*model.ChatRoom, bool, error) {
	if err := validate.Struct(input); err != nil {
		return nil, false, fmt.Errorf("invalid create room input: %w", err)
	}
	if input.OtherUserID == userID {
		return nil, false, ErrSelfChat
	}

	current, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	other, err := s.users.GetUser(ctx, input.OtherUserID)
	if err != nil {
		return nil, false, err
	}

	var customerID, providerID string
	switch {
	case current.IsProvider():
		providerID = current.UserID
		customerID = other.UserID
	case other.IsProvider():
		providerID = other.UserID
		customerID = current.UserID
	default:
		return nil, false, ErrNoProvider
	}

	return s.rooms.GetOrCreateRoom(ctx, customerID, providerID, input.BookingID)
}

func (s *chatService) GetRoom(ctx context.Context, userID, roomID string) (*model.ChatRoom, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return room, nil
}

// ListMessages returns a page of the room's messages. With ack set, viewing
// acknowledges receipt: every unread message not sent by the viewer is
// marked read. ack=false is the side-effect-free read for audit views.
func (s *chatService) ListMessages(ctx context.Context, userID, roomID string, page int64, ack bool) (*db.PaginatedResult[model.Message], error) {
	if _, err := s.GetRoom(ctx, userID, roomID); err != nil {
		return nil, err
	}

	if !ack {
		return s.messages.ListMessages(ctx, roomID, page)
	}

	result, _, err := s.messages.ListAndMarkRead(ctx, roomID, userID, page)
	return result, err
}

func (s *chatService) SendMessage(ctx context.Context, userID, roomID string, input SendMessageInput) (*model.Message, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid send message input: %w", err)
	}

	room, err := s.GetRoom(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		RoomID:      room.ID,
		SenderID:    userID,
		MessageType: input.MessageType,
		Content:     input.Content,
		FileURL:     input.FileURL,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.messages.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.rooms.TouchRoom(ctx, roomID); err != nil {
		s.logger.Warn("failed to touch room after message",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}

	return msg, nil
}

func (s *chatService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	roomIDs := lo.Map(rooms, func(room model.ChatRoom, _ int) primitive.ObjectID {
		return room.ID
	})

	return s.messages.UnreadCount(ctx, roomIDs, userID)
}

func (s *chatService) MarkRead(ctx context.Context, userID, roomID string) (int64, error) {
	if _, err := s.GetRoom(ctx, userID, roomID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, roomID, userID)
}

func (s *chatService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	return s.messages.SoftDeleteMessage(ctx, messageID, userID)
}
