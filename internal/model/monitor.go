package model

// MonitorResponse is the hub statistics payload served on /monitor/stats.
type MonitorResponse struct {
	Status      string         `json:"status"`
	Connections ConnectionStats `json:"connections"`
	Rooms       RoomStats       `json:"rooms"`
	Typing      []TypingStatus  `json:"typing"`
}

// ConnectionStats summarizes live socket connections.
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"`
}

// RoomStats summarizes rooms with at least one live session.
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo describes one room's live membership.
type RoomInfo struct {
	RoomID        string   `json:"roomId"`
	TotalSessions int      `json:"totalSessions"`
	UserIDs       []string `json:"userIds"`
}
