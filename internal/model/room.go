package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRoom pairs one customer with one provider. At most one active room
// exists per pair; creation is get-or-create keyed on (customer, provider).
type ChatRoom struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CustomerID string             `json:"customerId" bson:"customer_id"`
	ProviderID string             `json:"providerId" bson:"provider_id"`
	BookingID  *string            `json:"bookingId" bson:"booking_id"`
	IsActive   bool               `json:"isActive" bson:"is_active"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updated_at"`
}

// HasParticipant reports whether userID is the room's customer or provider.
func (r *ChatRoom) HasParticipant(userID string) bool {
	return r.CustomerID == userID || r.ProviderID == userID
}

// OtherParticipant returns the participant that is not userID.
func (r *ChatRoom) OtherParticipant(userID string) string {
	if r.CustomerID == userID {
		return r.ProviderID
	}
	return r.CustomerID
}
