package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"peer-chat/internal/repository"
	"peer-chat/internal/service"
)

// retryAfterSeconds se envia cuando el almacenamiento no esta disponible y no hay fallback.
const retryAfterSeconds = "5"

// ChatHandler mantiene dependencias para las rutas de conversacion y notificaciones.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
	pages    *PageRenderer
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService, pages *PageRenderer) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
		pages:    pages,
	}
}

// View maneja GET /:username. Despues de armar la vista marca como leida la conversacion elegida.
func (h *ChatHandler) View(c *gin.Context) {
	username := c.Param("username")
	selected := c.Query("selected")

	view, err := h.chatServ.Conversation(c.Request.Context(), username, selected)
	if err != nil {
		h.writeError(c, "load conversation failed", err)
		return
	}

	if view.HasSelection() {
		if err := h.chatServ.AcknowledgeConversation(c.Request.Context(), username, view.Selected); err != nil {
			h.logger.Warn("acknowledge conversation failed",
				zap.String("viewer", username),
				zap.String("selected", view.Selected),
				zap.Error(err),
			)
		}
	}

	h.pages.render(c, http.StatusOK, "index.html", view)
}

// SendMessage maneja POST /:username/send_message.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	username := c.Param("username")
	var req struct {
		Message string `form:"message" binding:"required"`
		ToUser  string `form:"to_user" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.chatServ.Send(c.Request.Context(), username, req.ToUser, req.Message); err != nil {
		h.writeError(c, "send message failed", err)
		return
	}

	c.Redirect(http.StatusSeeOther, conversationURL(username, req.ToUser))
}

// Select maneja GET /:username/select/:selected.
func (h *ChatHandler) Select(c *gin.Context) {
	username := c.Param("username")
	selected := c.Param("selected")
	if !h.chatServ.IsUser(username) || !h.chatServ.IsUser(selected) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.Redirect(http.StatusSeeOther, conversationURL(username, selected))
}

// ClearNotifications maneja GET /:username/clear_notifications.
func (h *ChatHandler) ClearNotifications(c *gin.Context) {
	username := c.Param("username")
	if err := h.chatServ.ClearNotifications(c.Request.Context(), username); err != nil {
		h.writeError(c, "clear notifications failed", err)
		return
	}
	c.Redirect(http.StatusSeeOther, userURL(username))
}

// ReadNotification maneja GET /:username/read_notification/:notification_id.
func (h *ChatHandler) ReadNotification(c *gin.Context) {
	username := c.Param("username")
	if err := h.chatServ.ReadNotification(c.Request.Context(), username, c.Param("notification_id")); err != nil {
		h.writeError(c, "read notification failed", err)
		return
	}
	c.Redirect(http.StatusSeeOther, userURL(username))
}

func (h *ChatHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, service.ErrInvalidUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
	case errors.Is(err, service.ErrSelfMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, repository.ErrBackendUnavailable):
		h.logger.Error(msg, zap.Error(err))
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func userURL(username string) string {
	return "/" + url.PathEscape(username)
}

func conversationURL(username, selected string) string {
	return userURL(username) + "?" + url.Values{"selected": {selected}}.Encode()
}
