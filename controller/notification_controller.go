package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/entity"
	"github.com/hemantmeena2005/chat/service"
)

type NotificationController struct {
	notes service.NotificationService
	log   *zap.Logger
}

func NewNotificationController(notes service.NotificationService, log *zap.Logger) *NotificationController {
	return &NotificationController{notes: notes, log: log}
}

func (n *NotificationController) List(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUsernameMissing.Error()})
		return
	}
	list, err := n.notes.List(c.Request.Context(), username)
	if err != nil {
		respondError(c, n.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (n *NotificationController) MarkRead(c *gin.Context) {
	var req entity.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := n.notes.MarkAllRead(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, n.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
