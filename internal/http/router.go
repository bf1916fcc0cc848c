package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, homeH *HomeHandler, chatH *ChatHandler, healthH *HealthHandler) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/health", healthH.Health)

	r.GET("/", homeH.Show)
	r.POST("/", homeH.SelectUser)

	user := r.Group("/:username")
	user.GET("", chatH.View)
	user.POST("/send_message", chatH.SendMessage)
	user.GET("/select/:selected", chatH.Select)
	user.GET("/clear_notifications", chatH.ClearNotifications)
	user.GET("/read_notification/:notification_id", chatH.ReadNotification)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
