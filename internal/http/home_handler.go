package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"peer-chat/internal/service"
)

type homePage struct {
	Error string
	Users []string
}

// HomeHandler sirve el formulario de seleccion de usuario.
type HomeHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
	pages    *PageRenderer
}

// NewHomeHandler crea una instancia de HomeHandler con dependencias necesarias.
func NewHomeHandler(logger *zap.Logger, chatServ *service.ChatService, pages *PageRenderer) *HomeHandler {
	return &HomeHandler{
		logger:   logger,
		chatServ: chatServ,
		pages:    pages,
	}
}

// Show maneja GET /.
func (h *HomeHandler) Show(c *gin.Context) {
	h.pages.render(c, http.StatusOK, "home.html", homePage{Users: h.chatServ.Users()})
}

// SelectUser maneja POST /.
func (h *HomeHandler) SelectUser(c *gin.Context) {
	var req struct {
		Username string `form:"username" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil || !h.chatServ.IsUser(req.Username) {
		h.logger.Warn("unknown username submitted", zap.String("username", req.Username))
		h.pages.render(c, http.StatusOK, "home.html", homePage{
			Error: "User not found!",
			Users: h.chatServ.Users(),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+url.PathEscape(req.Username))
}
