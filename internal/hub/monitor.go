package hub

import (
	"sort"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/model"
)

const typingStaleAfter = 10 * time.Second

// MonitorService gathers hub statistics for the monitor endpoint.
type MonitorService struct {
	hub *Hub
}

func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats reports live sessions, per-room membership and active typing
// indicators.
func (ms *MonitorService) GetStats() model.MonitorResponse {
	roomStats := ms.getRoomStats()

	totalConnected := 0
	for _, info := range roomStats.RoomDetails {
		totalConnected += info.TotalSessions
	}

	status := "healthy"
	if totalConnected == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: model.ConnectionStats{TotalConnected: totalConnected},
		Rooms:       roomStats,
		Typing:      ms.hub.engine.TypingSnapshot(typingStaleAfter),
	}
}

func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for roomID, room := range bucket.rooms {
			userIDs := make([]string, 0, len(room))
			for _, client := range room {
				userIDs = append(userIDs, client.userID)
			}
			sort.Strings(userIDs)

			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				RoomID:        roomID,
				TotalSessions: len(room),
				UserIDs:       userIDs,
			})
			stats.TotalRooms++
		}
		bucket.RUnlock()
	}

	return stats
}
