package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"peer-chat/internal/domain"
)

// FallbackStore envuelve un backend persistente. Cuando una llamada falla registra el error y,
// si el fallback esta habilitado, repite la misma operacion sobre el espejo en memoria.
// Los dos lados nunca se reconcilian: lo escrito en el espejo no aparece en lecturas persistentes.
type FallbackStore struct {
	logger   *zap.Logger
	primary  Store
	mirror   *MemoryStore
	fallback bool
}

// NewFallbackStore crea el wrapper. Con fallback=false los errores del primario se devuelven
// envueltos en ErrBackendUnavailable.
func NewFallbackStore(logger *zap.Logger, primary Store, mirror *MemoryStore, fallback bool) *FallbackStore {
	if mirror == nil {
		mirror = NewMemoryStore()
	}
	return &FallbackStore{
		logger:   logger,
		primary:  primary,
		mirror:   mirror,
		fallback: fallback,
	}
}

func (s *FallbackStore) Name() string { return s.primary.Name() }

func (s *FallbackStore) InsertMessage(ctx context.Context, msg domain.Message) error {
	return s.exec("insert_message", s.primary.InsertMessage(ctx, msg), func() error {
		return s.mirror.InsertMessage(ctx, msg)
	})
}

func (s *FallbackStore) FindConversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	msgs, err := s.primary.FindConversation(ctx, a, b)
	if err == nil {
		return msgs, nil
	}
	if err := s.handleFailure("find_conversation", err); err != nil {
		return nil, err
	}
	return s.mirror.FindConversation(ctx, a, b)
}

func (s *FallbackStore) InsertNotification(ctx context.Context, n domain.Notification) error {
	return s.exec("insert_notification", s.primary.InsertNotification(ctx, n), func() error {
		return s.mirror.InsertNotification(ctx, n)
	})
}

func (s *FallbackStore) FindUnread(ctx context.Context, user string) ([]domain.Notification, error) {
	notifs, err := s.primary.FindUnread(ctx, user)
	if err == nil {
		return notifs, nil
	}
	if err := s.handleFailure("find_unread_notifications", err); err != nil {
		return nil, err
	}
	return s.mirror.FindUnread(ctx, user)
}

func (s *FallbackStore) MarkRead(ctx context.Context, fromUser, toUser string) error {
	return s.exec("mark_read", s.primary.MarkRead(ctx, fromUser, toUser), func() error {
		return s.mirror.MarkRead(ctx, fromUser, toUser)
	})
}

func (s *FallbackStore) MarkOneRead(ctx context.Context, user, notificationID string) error {
	return s.exec("mark_one_read", s.primary.MarkOneRead(ctx, user, notificationID), func() error {
		return s.mirror.MarkOneRead(ctx, user, notificationID)
	})
}

func (s *FallbackStore) ClearAll(ctx context.Context, user string) error {
	return s.exec("clear_all", s.primary.ClearAll(ctx, user), func() error {
		return s.mirror.ClearAll(ctx, user)
	})
}

func (s *FallbackStore) SeedUsers(ctx context.Context, usernames []string) error {
	return s.exec("seed_users", s.primary.SeedUsers(ctx, usernames), func() error {
		return s.mirror.SeedUsers(ctx, usernames)
	})
}

func (s *FallbackStore) exec(op string, err error, onMirror func() error) error {
	if err == nil {
		return nil
	}
	if err := s.handleFailure(op, err); err != nil {
		return err
	}
	return onMirror()
}

// handleFailure registra el fallo y devuelve nil si se debe continuar sobre el espejo.
func (s *FallbackStore) handleFailure(op string, err error) error {
	if !s.fallback {
		s.logger.Error("storage operation failed",
			zap.String("op", op),
			zap.String("backend", s.primary.Name()),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w: %v", op, ErrBackendUnavailable, err)
	}
	s.logger.Error("storage operation failed, using in-memory mirror",
		zap.String("op", op),
		zap.String("backend", s.primary.Name()),
		zap.Error(err),
	)
	return nil
}
