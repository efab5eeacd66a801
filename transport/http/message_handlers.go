package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/service"
)

// MessageHandlers contains HTTP handlers for the message endpoints.
type MessageHandlers struct {
	messageService *service.MessageService
}

// NewMessageHandlers creates new message handlers.
func NewMessageHandlers(messageService *service.MessageService) *MessageHandlers {
	return &MessageHandlers{messageService: messageService}
}

// Accept takes a signed envelope, validates it and parks it for delivery. The
// sender must be the authenticated identity.
func (h *MessageHandlers) Accept(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	var env core.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if env.From != session.Identifier {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sender does not match authenticated identity"})
		return
	}

	stored, err := h.messageService.Accept(c.Request.Context(), &env)
	if err != nil {
		if errors.Is(err, core.ErrInvalidEnvelope) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": stored.ID})
}

// Inbox lists the authenticated identity's stored messages.
func (h *MessageHandlers) Inbox(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	msgs, err := h.messageService.Inbox(c.Request.Context(), session.Identifier)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inbox"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Ack removes a delivered message from the authenticated identity's inbox.
func (h *MessageHandlers) Ack(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	err := h.messageService.Ack(c.Request.Context(), session.Identifier, c.Param("id"))
	if err != nil {
		if errors.Is(err, core.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Acknowledged"})
}
