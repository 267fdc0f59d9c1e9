package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/db"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidMessage     = errors.New("invalid message: message cannot be nil")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidRoomID      = errors.New("invalid room ID: cannot be empty")
	ErrMessageNotFound    = errors.New("message not found")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	// Page size for message listings
	messagePageSize = 50
)

type messageRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) (string, error)
	ListMessages(ctx context.Context, roomID string, page int64) (*db.PaginatedResult[model.Message], error)
	ListAndMarkRead(ctx context.Context, roomID, viewerID string, page int64) (*db.PaginatedResult[model.Message], int64, error)
	MarkRead(ctx context.Context, roomID, viewerID string) (int64, error)
	UnreadCount(ctx context.Context, roomIDs []primitive.ObjectID, viewerID string) (int64, error)
	SoftDeleteMessage(ctx context.Context, messageID, requesterID string) error
}

func NewMessageRepository(mongo *mongo.Database, repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		con:       mongo,
		mongoRepo: repo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (string, error) {
	if err := m.validateMessage(msg); err != nil {
		return "", err
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return "", err
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			insertedID := ""
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				msg.ID = oid
				insertedID = oid.Hex()
			}

			m.logger.Info("message inserted",
				zap.String("inserted_id", insertedID),
				zap.String("room_id", msg.RoomID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return insertedID, nil
		}

		lastErr = err

		// Don't retry on context cancellation or non-retryable errors
		if !m.isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("room_id", msg.RoomID.Hex()),
	)

	return "", fmt.Errorf("insert message failed: %w", lastErr)
}

// -----------------------------------------------------------------------------
// ListMessages - pure read, no read-state side effect
// -----------------------------------------------------------------------------

func (m *messageRepository) ListMessages(ctx context.Context, roomID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if err := m.validateRoomID(roomID); err != nil {
		return nil, err
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("room_id", roomID).
		Eq("is_deleted", false).
		Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message listing",
				zap.String("room_id", roomID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: messagePageSize,
			SortBy:   "created_at",
			SortDesc: false,
		})
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !m.isRetryableError(err) {
			break
		}
	}

	return nil, m.handleReadError(lastErr, roomID)
}

// -----------------------------------------------------------------------------
// ListAndMarkRead - listing acknowledges receipt
// -----------------------------------------------------------------------------

// ListAndMarkRead returns a page of the room's messages and, as a documented
// side effect, marks every unread message not sent by viewerID as read.
// The mark-read step is bulk and idempotent: a second call matches nothing
// and already-read messages keep their original read timestamp.
func (m *messageRepository) ListAndMarkRead(ctx context.Context, roomID, viewerID string, page int64) (*db.PaginatedResult[model.Message], int64, error) {
	marked, err := m.MarkRead(ctx, roomID, viewerID)
	if err != nil {
		return nil, 0, err
	}

	result, err := m.ListMessages(ctx, roomID, page)
	if err != nil {
		return nil, marked, err
	}
	return result, marked, nil
}

// MarkRead flips is_read and stamps read_at on every unread message in the
// room whose sender is not viewerID. Returns the number of messages updated.
func (m *messageRepository) MarkRead(ctx context.Context, roomID, viewerID string) (int64, error) {
	if err := m.validateRoomID(roomID); err != nil {
		return 0, err
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("room_id", roomID).
		Eq("is_read", false).
		Ne("sender_id", viewerID).
		Build()

	result, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{
		"is_read": true,
		"read_at": time.Now().UTC(),
	})
	if err != nil {
		m.logger.Error("bulk mark-read failed",
			zap.Error(err),
			zap.String("room_id", roomID),
			zap.String("viewer_id", viewerID),
		)
		return 0, fmt.Errorf("mark messages read failed: %w", err)
	}

	if result.ModifiedCount > 0 {
		m.logger.Debug("messages marked read",
			zap.String("room_id", roomID),
			zap.Int64("count", result.ModifiedCount),
		)
	}
	return result.ModifiedCount, nil
}

// -----------------------------------------------------------------------------
// UnreadCount
// -----------------------------------------------------------------------------

func (m *messageRepository) UnreadCount(ctx context.Context, roomIDs []primitive.ObjectID, viewerID string) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		In("room_id", roomIDs).
		Eq("is_read", false).
		Eq("is_deleted", false).
		Ne("sender_id", viewerID).
		Build()

	count, err := m.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread messages failed: %w", err)
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// SoftDeleteMessage
// -----------------------------------------------------------------------------

// SoftDeleteMessage sets is_deleted on a message the requester sent. Content
// is retained; messages are never removed from the collection.
func (m *messageRepository) SoftDeleteMessage(ctx context.Context, messageID, requesterID string) error {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return fmt.Errorf("invalid message ID format: %w", err)
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "sender_id": requesterID}
	result, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{"is_deleted": true})
	if err != nil {
		return fmt.Errorf("soft delete message failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func (m *messageRepository) validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.RoomID.IsZero() {
		return ErrInvalidRoomID
	}
	if !model.ValidClientMessageType(msg.MessageType) && msg.MessageType != model.MessageTypeSystem {
		return fmt.Errorf("%w: %q", ErrInvalidMessageType, msg.MessageType)
	}
	return nil
}

func (m *messageRepository) validateRoomID(roomID string) error {
	if roomID == "" {
		return ErrInvalidRoomID
	}
	return nil
}

func (m *messageRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (m *messageRepository) waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (m *messageRepository) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}

	return false
}

func (m *messageRepository) handleReadError(err error, roomID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.String("room_id", roomID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("room_id", roomID))
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil // Not an error, just empty result
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("room_id", roomID))
	return fmt.Errorf("list messages failed: %w", err)
}
