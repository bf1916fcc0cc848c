package repository

import (
	"context"
	"errors"
	"slices"
	"sort"

	"peer-chat/internal/domain"
)

// ErrBackendUnavailable indica que el almacenamiento persistente fallo y no hubo fallback.
var ErrBackendUnavailable = errors.New("storage backend unavailable")

// MessageRepository define el contrato de persistencia para mensajes.
type MessageRepository interface {
	InsertMessage(ctx context.Context, msg domain.Message) error
	// FindConversation devuelve los mensajes entre a y b en ambas direcciones,
	// ordenados por timestamp ascendente y por orden de insercion en empates.
	FindConversation(ctx context.Context, a, b string) ([]domain.Message, error)
}

// NotificationRepository define el contrato de persistencia para notificaciones.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, n domain.Notification) error
	// FindUnread devuelve las notificaciones no leidas de user, mas recientes primero.
	FindUnread(ctx context.Context, user string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, fromUser, toUser string) error
	MarkOneRead(ctx context.Context, user, notificationID string) error
	ClearAll(ctx context.Context, user string) error
}

// UserRepository guarda el roster como tabla de referencia. No se consulta por request.
type UserRepository interface {
	SeedUsers(ctx context.Context, usernames []string) error
}

// Store agrupa todas las capacidades de un backend.
type Store interface {
	MessageRepository
	NotificationRepository
	UserRepository
	Name() string
}

func sortConversation(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// sortUnread espera notifs en orden de insercion. Invertir antes del sort estable deja
// las insertadas mas tarde primero en los empates, igual que el resto de los stores.
func sortUnread(notifs []domain.Notification) {
	slices.Reverse(notifs)
	sort.SliceStable(notifs, func(i, j int) bool {
		return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
	})
}
