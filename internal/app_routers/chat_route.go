package approuters

import (
	"github.com/mihirKIG/Service-Hub-Backend/internal/configuration"
	"github.com/mihirKIG/Service-Hub-Backend/internal/handler"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/chat", handler.AuthMiddleware(container.Config.Auth.JwtSecret))
	{
		chatRoute.GET("/rooms", container.ChatHandler.ListRooms)
		chatRoute.POST("/rooms/create", container.ChatHandler.CreateRoom)
		chatRoute.GET("/rooms/:roomId", container.ChatHandler.GetRoom)
		chatRoute.GET("/rooms/:roomId/messages", container.ChatHandler.ListMessages)
		chatRoute.POST("/rooms/:roomId/messages/send", container.ChatHandler.SendMessage)
		chatRoute.POST("/rooms/:roomId/mark-read", container.ChatHandler.MarkRead)
		chatRoute.GET("/unread-count", container.ChatHandler.UnreadCount)
		chatRoute.DELETE("/messages/:messageId", container.ChatHandler.DeleteMessage)
	}
}
