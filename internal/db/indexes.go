package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureChatIndexes creates the indexes the chat store depends on. The unique
// index on (customer_id, provider_id) backs the get-or-create invariant: two
// concurrent creations for the same pair resolve to a single room.
func EnsureChatIndexes(ctx context.Context, database *mongo.Database, roomsCollection, messagesCollection string) error {
	rooms := database.Collection(roomsCollection)
	_, err := rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "customer_id", Value: 1},
			{Key: "provider_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create room pair index: %w", err)
	}

	messages := database.Collection(messagesCollection)
	_, err = messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create message room index: %w", err)
	}

	return nil
}
