package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles on the marketplace.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

// User represents a marketplace account as stored in the users collection.
// Identity issuance lives elsewhere; the chat service only reads these.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"user_id"`
	Email     string             `json:"email" bson:"email"`
	FirstName string             `json:"firstName" bson:"first_name"`
	LastName  string             `json:"lastName" bson:"last_name"`
	Avatar    string             `json:"avatar" bson:"avatar"`
	Role      string             `json:"role" bson:"role"`
	IsActive  bool               `json:"isActive" bson:"is_active"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt *time.Time         `json:"updatedAt" bson:"updated_at"`
}

// DisplayName renders the name shown next to a user's messages.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsProvider reports whether the user offers services on the marketplace.
func (u *User) IsProvider() bool {
	return u.Role == RoleProvider
}
