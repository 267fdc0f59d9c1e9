package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestAccessOracle_ParticipantsAllowed(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	oracle := NewAccessOracle(&fakeRoomStore{room: room}, zap.NewNop())
	ctx := context.Background()

	req.True(oracle.Authorize(ctx, "alice", room.ID.Hex()))
	req.True(oracle.Authorize(ctx, "bob", room.ID.Hex()))
}

func TestAccessOracle_StrangerDenied(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	oracle := NewAccessOracle(&fakeRoomStore{room: room}, zap.NewNop())

	req.False(oracle.Authorize(context.Background(), "mallory", room.ID.Hex()))
}

func TestAccessOracle_MissingRoomFailsClosed(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	oracle := NewAccessOracle(&fakeRoomStore{room: room}, zap.NewNop())

	req.False(oracle.Authorize(context.Background(), "alice", primitive.NewObjectID().Hex()))
}

func TestAccessOracle_InactiveRoomFailsClosed(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	room.IsActive = false
	oracle := NewAccessOracle(&fakeRoomStore{room: room}, zap.NewNop())

	req.False(oracle.Authorize(context.Background(), "alice", room.ID.Hex()))
}

func TestAccessOracle_StoreErrorFailsClosed(t *testing.T) {
	req := require.New(t)
	oracle := NewAccessOracle(&fakeRoomStore{err: errors.New("store unreachable")}, zap.NewNop())

	req.False(oracle.Authorize(context.Background(), "alice", primitive.NewObjectID().Hex()))
}
