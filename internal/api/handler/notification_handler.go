package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(ns *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: ns}
}

// GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	email := c.GetString(middleware.UserEmailKey)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.notifService.ListForUser(c.Request.Context(), email, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list notifications"})
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	email := c.GetString(middleware.UserEmailKey)
	count, err := h.notifService.UnreadCount(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count unread notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	email := c.GetString(middleware.UserEmailKey)
	if err := h.notifService.MarkRead(c.Request.Context(), id, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notification as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}
