package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler responde el probe de liveness.
type HealthHandler struct {
	storage string
	now     func() time.Time
}

// NewHealthHandler reporta storage como el backend activo.
func NewHealthHandler(storage string) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Health maneja GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now(),
		"storage":   h.storage,
	})
}
