package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mihirKIG/Service-Hub-Backend/internal/repo"
	"github.com/mihirKIG/Service-Hub-Backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler interface {
	ListRooms(c *gin.Context)
	CreateRoom(c *gin.Context)
	GetRoom(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	UnreadCount(c *gin.Context)
	MarkRead(c *gin.Context)
	DeleteMessage(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
	logger  *zap.Logger
}

func NewChatHandler(svc service.ChatService, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		service: svc,
		logger:  logger,
	}
}

func (h *chatHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context(), CurrentUser(c))
	if err != nil {
		h.serverError(c, "failed to list rooms", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *chatHandler) CreateRoom(c *gin.Context) {
	var input service.CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	room, created, err := h.service.GetOrCreateRoom(c.Request.Context(), CurrentUser(c), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoProvider), errors.Is(err, service.ErrSelfChat):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repo.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.serverError(c, "failed to create room", err)
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"room": room, "created": created})
}

func (h *chatHandler) GetRoom(c *gin.Context) {
	room, err := h.service.GetRoom(c.Request.Context(), CurrentUser(c), c.Param("roomId"))
	if err != nil {
		h.roomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// ListMessages returns a page of messages. Viewing acknowledges receipt
// unless ack=false is passed (side-effect-free read).
func (h *chatHandler) ListMessages(c *gin.Context) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}
	ack := c.DefaultQuery("ack", "true") != "false"

	result, err := h.service.ListMessages(c.Request.Context(), CurrentUser(c), c.Param("roomId"), page, ack)
	if err != nil {
		h.roomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": result})
}

func (h *chatHandler) SendMessage(c *gin.Context) {
	var input service.SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), CurrentUser(c), c.Param("roomId"), input)
	if err != nil {
		if isRoomAccessError(err) {
			h.roomError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *chatHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), CurrentUser(c))
	if err != nil {
		h.serverError(c, "failed to count unread messages", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *chatHandler) MarkRead(c *gin.Context) {
	count, err := h.service.MarkRead(c.Request.Context(), CurrentUser(c), c.Param("roomId"))
	if err != nil {
		h.roomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d messages marked as read", count),
		"count":   count,
	})
}

func (h *chatHandler) DeleteMessage(c *gin.Context) {
	err := h.service.DeleteMessage(c.Request.Context(), CurrentUser(c), c.Param("messageId"))
	if err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.serverError(c, "failed to delete message", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// roomError maps room access failures the way the resource API presents
// them: unknown room and non-participant both read as not found.
func (h *chatHandler) roomError(c *gin.Context, err error) {
	if isRoomAccessError(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat room not found or access denied"})
		return
	}
	h.serverError(c, "chat operation failed", err)
}

func (h *chatHandler) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func isRoomAccessError(err error) bool {
	return errors.Is(err, repo.ErrRoomNotFound) ||
		errors.Is(err, repo.ErrInvalidRoomID) ||
		errors.Is(err, service.ErrNotParticipant)
}
