package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrRoomNotFound = errors.New("chat room not found")

type roomRepository struct {
	con    *mongo.Database
	coll   *mongo.Collection
	logger *zap.Logger
}

type RoomRepository interface {
	GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error)
	GetOrCreateRoom(ctx context.Context, customerID, providerID string, bookingID *string) (*model.ChatRoom, bool, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]model.ChatRoom, error)
	TouchRoom(ctx context.Context, roomID string) error
	DeactivateRoom(ctx context.Context, roomID string) error
}

func NewRoomRepository(mongo *mongo.Database, collectionName string, logger *zap.Logger) RoomRepository {
	return &roomRepository{
		con:    mongo,
		coll:   mongo.Collection(collectionName),
		logger: logger,
	}
}

// GetRoom fetches a room by ID. Returns ErrRoomNotFound when no such room
// exists; callers deciding access must treat that as a denial.
func (r *roomRepository) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	if roomID == "" {
		return nil, ErrInvalidRoomID
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		r.logger.Debug("invalid room ID format",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	var room model.ChatRoom
	err = r.coll.FindOne(ctx, bson.M{"_id": objectID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
		}
		r.logger.Error("failed to fetch room",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch room: %w", err)
	}

	return &room, nil
}

// GetOrCreateRoom returns the room for the (customer, provider) pair,
// creating it when absent. The upsert is atomic under the unique pair index,
// so two concurrent calls for the same pair yield exactly one room; the
// second caller observes created == false.
func (r *roomRepository) GetOrCreateRoom(ctx context.Context, customerID, providerID string, bookingID *string) (*model.ChatRoom, bool, error) {
	if customerID == "" || providerID == "" {
		return nil, false, ErrInvalidRoomID
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{"customer_id": customerID, "provider_id": providerID}
	update := bson.M{"$setOnInsert": bson.M{
		"booking_id": bookingID,
		"is_active":  true,
		"created_at": now,
		"updated_at": now,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("room upsert failed",
			zap.String("customer_id", customerID),
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
		return nil, false, fmt.Errorf("get or create room failed: %w", err)
	}
	created := result.UpsertedCount > 0

	var room model.ChatRoom
	if err := r.coll.FindOne(ctx, filter).Decode(&room); err != nil {
		return nil, created, fmt.Errorf("fetch room after upsert failed: %w", err)
	}

	if created {
		r.logger.Info("chat room created",
			zap.String("room_id", room.ID.Hex()),
			zap.String("customer_id", customerID),
			zap.String("provider_id", providerID),
		)
	}
	return &room, created, nil
}

// ListRoomsForUser returns the user's active rooms, most recent activity
// first.
func (r *roomRepository) ListRoomsForUser(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := bson.M{
		"$or": []bson.M{
			{"customer_id": userID},
			{"provider_id": userID},
		},
		"is_active": true,
	}
	opts := options.Find().SetSort(bson.M{"updated_at": -1})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("failed to query rooms", zap.Error(err))
		return nil, fmt.Errorf("list rooms failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []model.ChatRoom
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms failed: %w", err)
	}
	return rooms, nil
}

// TouchRoom bumps the room's updated_at, keeping the room list ordering in
// step with message activity.
func (r *roomRepository) TouchRoom(ctx context.Context, roomID string) error {
	objectID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		return fmt.Errorf("invalid room ID format: %w", err)
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("touch room failed: %w", err)
	}
	return nil
}

// DeactivateRoom clears the active flag. Rooms are never deleted.
func (r *roomRepository) DeactivateRoom(ctx context.Context, roomID string) error {
	objectID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		return fmt.Errorf("invalid room ID format: %w", err)
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("deactivate room failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	r.logger.Info("chat room deactivated", zap.String("room_id", roomID))
	return nil
}

func (r *roomRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
