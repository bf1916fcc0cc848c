package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"peer-chat/internal/domain"
	"peer-chat/internal/repository"
	"peer-chat/internal/service"
)

func setupChatRouter(t *testing.T, store repository.Store, limiter service.SendRateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	pages, err := NewPageRenderer(logger)
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	svc := service.NewChatService(logger, domain.NewDirectory([]string{"A", "B", "C"}), store, store, limiter)
	return NewRouter(logger,
		NewHomeHandler(logger, svc, pages),
		NewChatHandler(logger, svc, pages),
		NewHealthHandler(store.Name()),
	)
}

func performForm(r http.Handler, method, path string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func TestHomeHandler_ShowListsUsers(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), nil)
	rec := performForm(r, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	for _, u := range []string{"A", "B", "C"} {
		if !strings.Contains(rec.Body.String(), `<option value="`+u+`">`) {
			t.Fatalf("expected option for %s", u)
		}
	}
}

func TestHomeHandler_SelectUser(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), nil)

	rec := performForm(r, http.MethodPost, "/", url.Values{"username": {"A"}})
	expectRedirect(t, rec, "/A")

	rec = performForm(r, http.MethodPost, "/", url.Values{"username": {"Z"}})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "User not found!") {
		t.Fatalf("expected form with error, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performForm(r, http.MethodPost, "/", url.Values{})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "User not found!") {
		t.Fatalf("expected form with error for missing username, got %d", rec.Code)
	}
}

func TestChatHandler_ViewUnknownUser(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), nil)
	rec := performForm(r, http.MethodGet, "/Z", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestChatHandler_SendMessageRedirects(t *testing.T) {
	store := repository.NewMemoryStore()
	r := setupChatRouter(t, store, nil)

	rec := performForm(r, http.MethodPost, "/A/send_message", url.Values{"message": {"hola"}, "to_user": {"B"}})
	expectRedirect(t, rec, "/A?selected=B")

	msgs, _ := store.FindConversation(context.Background(), "A", "B")
	if len(msgs) != 1 || msgs[0].Body != "hola" {
		t.Fatalf("expected stored message, got %+v", msgs)
	}
}

func TestChatHandler_SendMessageErrors(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), service.NewMemoryRateLimiter(0, 1))

	cases := []struct {
		path string
		form url.Values
		want int
	}{
		{"/Z/send_message", url.Values{"message": {"x"}, "to_user": {"B"}}, http.StatusBadRequest},
		{"/A/send_message", url.Values{"message": {"x"}, "to_user": {"Z"}}, http.StatusBadRequest},
		{"/A/send_message", url.Values{"message": {"x"}, "to_user": {"A"}}, http.StatusBadRequest},
		{"/A/send_message", url.Values{"to_user": {"B"}}, http.StatusBadRequest},
		{"/A/send_message", url.Values{"message": {"x"}, "to_user": {"B"}}, http.StatusSeeOther},
		{"/A/send_message", url.Values{"message": {"y"}, "to_user": {"B"}}, http.StatusTooManyRequests},
	}
	for i, c := range cases {
		rec := performForm(r, http.MethodPost, c.path, c.form)
		if rec.Code != c.want {
			t.Fatalf("case %d expected status %d, got %d", i, c.want, rec.Code)
		}
	}
}

func TestChatHandler_Select(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), nil)

	expectRedirect(t, performForm(r, http.MethodGet, "/A/select/B", nil), "/A?selected=B")

	if rec := performForm(r, http.MethodGet, "/A/select/Z", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if rec := performForm(r, http.MethodGet, "/Z/select/A", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestChatHandler_ViewMarksConversationRead(t *testing.T) {
	store := repository.NewMemoryStore()
	r := setupChatRouter(t, store, nil)
	ctx := context.Background()

	performForm(r, http.MethodPost, "/A/send_message", url.Values{"message": {"x"}, "to_user": {"B"}})

	rec := performForm(r, http.MethodGet, "/B?selected=A", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Chat with A") || !strings.Contains(body, "<strong>A</strong> x") {
		t.Fatalf("expected conversation with x, got %s", body)
	}
	// la pagina todavia lista la notificacion que estaba sin leer al llegar el request
	if !strings.Contains(body, "Notifications (1)") {
		t.Fatalf("expected notification listed in this render")
	}

	unread, _ := store.FindUnread(ctx, "B")
	if len(unread) != 0 {
		t.Fatalf("expected notification marked read, got %d", len(unread))
	}

	rec = performForm(r, http.MethodGet, "/B?selected=A", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Notifications (0)") {
		t.Fatalf("expected no unread on re-render, got %d", rec.Code)
	}
}

func TestChatHandler_ViewInvalidSelectionIsEmpty(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), nil)
	rec := performForm(r, http.MethodGet, "/A?selected=Z", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "Chat with") {
		t.Fatalf("expected no conversation section")
	}
}

func TestChatHandler_NotificationRoutes(t *testing.T) {
	store := repository.NewMemoryStore()
	r := setupChatRouter(t, store, nil)
	ctx := context.Background()

	performForm(r, http.MethodPost, "/A/send_message", url.Values{"message": {"1"}, "to_user": {"B"}})
	performForm(r, http.MethodPost, "/C/send_message", url.Values{"message": {"2"}, "to_user": {"B"}})
	performForm(r, http.MethodPost, "/C/send_message", url.Values{"message": {"3"}, "to_user": {"B"}})

	unread, _ := store.FindUnread(ctx, "B")
	if len(unread) != 3 {
		t.Fatalf("expected 3 unread, got %d", len(unread))
	}

	expectRedirect(t, performForm(r, http.MethodGet, "/B/read_notification/"+unread[0].ID, nil), "/B")
	after, _ := store.FindUnread(ctx, "B")
	if len(after) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(after))
	}

	expectRedirect(t, performForm(r, http.MethodGet, "/B/clear_notifications", nil), "/B")
	after, _ = store.FindUnread(ctx, "B")
	if len(after) != 0 {
		t.Fatalf("expected 0 unread, got %d", len(after))
	}

	if rec := performForm(r, http.MethodGet, "/Z/clear_notifications", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

type downStore struct {
	*repository.MemoryStore
}

var errDown = errors.New("no reachable servers")

func (downStore) Name() string { return "mongo" }

func (downStore) FindUnread(context.Context, string) ([]domain.Notification, error) {
	return nil, errDown
}

func (downStore) InsertMessage(context.Context, domain.Message) error { return errDown }

func (downStore) InsertNotification(context.Context, domain.Notification) error { return errDown }

func TestChatHandler_BackendUnavailableWithoutFallback(t *testing.T) {
	store := repository.NewFallbackStore(zap.NewNop(), downStore{repository.NewMemoryStore()}, nil, false)
	r := setupChatRouter(t, store, nil)

	rec := performForm(r, http.MethodGet, "/A", nil)
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 503 with Retry-After, got %d", rec.Code)
	}

	rec = performForm(r, http.MethodPost, "/A/send_message", url.Values{"message": {"x"}, "to_user": {"B"}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestChatHandler_BackendDownWithFallbackStillServes(t *testing.T) {
	store := repository.NewFallbackStore(zap.NewNop(), downStore{repository.NewMemoryStore()}, nil, true)
	r := setupChatRouter(t, store, nil)

	rec := performForm(r, http.MethodPost, "/A/send_message", url.Values{"message": {"x"}, "to_user": {"B"}})
	expectRedirect(t, rec, "/A?selected=B")

	rec = performForm(r, http.MethodGet, "/B", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Notifications (1)") {
		t.Fatalf("expected mirrored notification, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPageRenderer_FailureIsGeneric500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pages := &PageRenderer{
		logger: zap.NewNop(),
		tmpl:   template.Must(template.New("").Parse(`{{define "home.html"}}{{.Missing.Field}}{{end}}`)),
	}
	svc := service.NewChatService(zap.NewNop(), domain.NewDirectory([]string{"A"}), repository.NewMemoryStore(), repository.NewMemoryStore(), nil)
	r := gin.New()
	r.GET("/", NewHomeHandler(zap.NewNop(), svc, pages).Show)

	rec := performForm(r, http.MethodGet, "/", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	r := setupChatRouter(t, repository.NewMemoryStore(), nil)
	rec := performForm(r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["storage"] != "memory" || body["timestamp"] == nil {
		t.Fatalf("unexpected health body %+v", body)
	}
}
