package model

import "time"

// TypingStatus tracks one participant's typing state in one room. Held in
// memory only; overwritten on every typing event.
type TypingStatus struct {
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	IsTyping  bool      `json:"isTyping"`
	UpdatedAt time.Time `json:"updatedAt"`
}
