package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageRenderer ejecuta las plantillas HTML en un buffer para poder responder 500 si fallan.
type PageRenderer struct {
	logger *zap.Logger
	tmpl   *template.Template
}

// NewPageRenderer parsea las plantillas embebidas.
func NewPageRenderer(logger *zap.Logger) (*PageRenderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"clock": func(t time.Time) string { return t.Format("15:04") },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &PageRenderer{logger: logger, tmpl: tmpl}, nil
}

func (p *PageRenderer) render(c *gin.Context, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		p.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte("<h1>Error loading template</h1>"))
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
