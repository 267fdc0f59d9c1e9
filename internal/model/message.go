package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message kinds. Clients may send text, image and file; system is reserved
// for server-generated messages.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message is a chat message document. Messages are soft-deleted only: the
// is_deleted flag is set and content retained, rows are never removed.
type Message struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RoomID      primitive.ObjectID `json:"roomId" bson:"room_id"`
	SenderID    string             `json:"senderId" bson:"sender_id"`
	MessageType string             `json:"messageType" bson:"message_type"`
	Content     string             `json:"content" bson:"content"`
	FileURL     *string            `json:"fileUrl" bson:"file_url"`
	IsRead      bool               `json:"isRead" bson:"is_read"`
	IsDeleted   bool               `json:"isDeleted" bson:"is_deleted"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	ReadAt      *time.Time         `json:"readAt" bson:"read_at"`
}

// ValidClientMessageType reports whether mt is a kind a client may send.
func ValidClientMessageType(mt string) bool {
	switch mt {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}
