package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unigest/unigest/internal/mailer"
	"github.com/unigest/unigest/internal/tasks"
)

// SendNotificationRequest asks the server to mail someone
type SendNotificationRequest struct {
	Recipient string `json:"recipient" binding:"required,email"`
	Subject   string `json:"subject" binding:"required,max=255"`
	Body      string `json:"body" binding:"required"`
}

// @Summary Send notification
// @Description Queues one mail delivery attempt. The response only acknowledges the enqueue.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendNotificationRequest true "Notification"
// @Success 202 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/notifications [post]
func (s *Server) sendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := tasks.NewSendNotificationTask(mailer.Notification{
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build notification task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	info, err := s.queue.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue notification")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service de notification indisponible"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("task_id", info.ID).
		Str("recipient", req.Recipient).
		Str("requested_by", sessionData.UserID).
		Msg("Notification queued")

	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID})
}
