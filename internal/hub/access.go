package hub

import (
	"context"

	"go.uber.org/zap"
)

// AccessOracle answers whether an identity is a participant of a room. It is
// a thin read-only wrapper over the room store with no side effects.
type AccessOracle struct {
	rooms  RoomStore
	logger *zap.Logger
}

func NewAccessOracle(rooms RoomStore, logger *zap.Logger) *AccessOracle {
	return &AccessOracle{rooms: rooms, logger: logger}
}

// Authorize returns true iff identity is the customer or the provider of an
// existing, active room. It fails closed: lookup errors, missing rooms and
// inactive rooms all deny. Room participants are immutable after creation,
// so one check per connection attempt suffices.
func (o *AccessOracle) Authorize(ctx context.Context, identity, roomID string) bool {
	room, err := o.rooms.GetRoom(ctx, roomID)
	if err != nil {
		o.logger.Debug("authorization denied: room lookup failed",
			zap.String("user_id", identity),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return false
	}
	if room == nil || !room.IsActive {
		return false
	}
	return room.HasParticipant(identity)
}
