package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peer-chat/internal/domain"
	"peer-chat/internal/repository"
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidUser              = errors.New("invalid user")
	ErrSelfMessage              = errors.New("cannot send a message to yourself")
	ErrRateLimited              = errors.New("rate limited")
)

// ConversationView es lo que ve un usuario: su hilo con el peer elegido y sus notificaciones no leidas.
type ConversationView struct {
	Viewer        string
	Selected      string
	OtherUsers    []string
	Messages      []domain.Message
	Notifications []domain.Notification
}

// HasSelection indica si la vista incluye una conversacion.
func (v ConversationView) HasSelection() bool {
	return v.Selected != ""
}

// ChatService coordina el directorio de usuarios con el almacenamiento de mensajes y notificaciones.
type ChatService struct {
	logger        *zap.Logger
	directory     *domain.Directory
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	limiter       SendRateLimiter
	now           func() time.Time
	newID         func() string
}

func NewChatService(
	logger *zap.Logger,
	directory *domain.Directory,
	messages repository.MessageRepository,
	notifications repository.NotificationRepository,
	limiter SendRateLimiter,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = noopRateLimiter{}
	}
	return &ChatService{
		logger:        logger,
		directory:     directory,
		messages:      messages,
		notifications: notifications,
		limiter:       limiter,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// Users devuelve el roster completo.
func (s *ChatService) Users() []string {
	if s == nil || s.directory == nil {
		return nil
	}
	return s.directory.Users()
}

// IsUser reporta si username pertenece al roster.
func (s *ChatService) IsUser(username string) bool {
	return s != nil && s.directory != nil && s.directory.Contains(username)
}

// Conversation arma la vista de viewer. Un peer invalido, ausente o igual a viewer produce una
// conversacion vacia sin error. No modifica el estado de lectura; ver AcknowledgeConversation.
func (s *ChatService) Conversation(ctx context.Context, viewer, selected string) (ConversationView, error) {
	if err := s.ready(); err != nil {
		return ConversationView{}, err
	}
	if !s.directory.Contains(viewer) {
		return ConversationView{}, ErrUserNotFound
	}

	view := ConversationView{
		Viewer:        viewer,
		OtherUsers:    s.directory.Others(viewer),
		Messages:      []domain.Message{},
		Notifications: []domain.Notification{},
	}

	unread, err := s.notifications.FindUnread(ctx, viewer)
	if err != nil {
		return ConversationView{}, fmt.Errorf("find unread notifications: %w", err)
	}
	if unread != nil {
		view.Notifications = unread
	}

	if !s.validPeer(viewer, selected) {
		return view, nil
	}
	view.Selected = selected

	msgs, err := s.messages.FindConversation(ctx, viewer, selected)
	if err != nil {
		return ConversationView{}, fmt.Errorf("find conversation: %w", err)
	}
	if msgs != nil {
		view.Messages = msgs
	}
	return view, nil
}

// AcknowledgeConversation marca como leidas las notificaciones de peer hacia viewer.
// Un peer invalido no hace nada.
func (s *ChatService) AcknowledgeConversation(ctx context.Context, viewer, peer string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.directory.Contains(viewer) {
		return ErrUserNotFound
	}
	if !s.validPeer(viewer, peer) {
		return nil
	}
	if err := s.notifications.MarkRead(ctx, peer, viewer); err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	return nil
}

// Send guarda un mensaje de from a to junto con su notificacion.
// Las dos escrituras son independientes: si la segunda falla la primera no se deshace.
// Solo un mensaje guardado consume cupo del limitador.
func (s *ChatService) Send(ctx context.Context, from, to, body string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.directory.Contains(from) || !s.directory.Contains(to) {
		return ErrInvalidUser
	}
	if from == to {
		return ErrSelfMessage
	}
	if !s.limiter.Allow(from) {
		return ErrRateLimited
	}

	now := s.now()
	msg := domain.Message{
		ID:        s.newID(),
		FromUser:  from,
		ToUser:    to,
		Body:      strings.TrimSpace(body),
		CreatedAt: now,
		Day:       now.Format(domain.DayLayout),
	}
	notif := domain.NewMessageNotification(s.newID(), msg)

	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		s.limiter.Refund(from)
		return fmt.Errorf("insert message: %w", err)
	}
	if err := s.notifications.InsertNotification(ctx, notif); err != nil {
		s.logger.Warn("message stored without notification",
			zap.String("message_id", msg.ID),
			zap.String("from_user", from),
			zap.String("to_user", to),
			zap.Error(err),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	s.logger.Info("message stored",
		zap.String("message_id", msg.ID),
		zap.String("from_user", from),
		zap.String("to_user", to),
	)
	return nil
}

// ClearNotifications marca como leidas todas las notificaciones de user.
func (s *ChatService) ClearNotifications(ctx context.Context, user string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.directory.Contains(user) {
		return ErrUserNotFound
	}
	if err := s.notifications.ClearAll(ctx, user); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// ReadNotification marca una notificacion de user como leida. Un id desconocido no es error.
func (s *ChatService) ReadNotification(ctx context.Context, user, notificationID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.directory.Contains(user) {
		return ErrUserNotFound
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return nil
	}
	if err := s.notifications.MarkOneRead(ctx, user, notificationID); err != nil {
		return fmt.Errorf("read notification: %w", err)
	}
	return nil
}

func (s *ChatService) validPeer(viewer, peer string) bool {
	return peer != "" && peer != viewer && s.directory.Contains(peer)
}

func (s *ChatService) ready() error {
	if s == nil || s.directory == nil || s.messages == nil || s.notifications == nil {
		return ErrChatServiceNotConfigured
	}
	return nil
}
