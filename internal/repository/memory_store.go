package repository

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"peer-chat/internal/domain"
)

// MemoryStore guarda todo en memoria del proceso. Sus operaciones no fallan.
// Las notificaciones leidas se conservan con Read=true, igual que en los backends persistentes.
type MemoryStore struct {
	mu            sync.RWMutex
	messages      []domain.Message
	notifications map[string][]domain.Notification
	users         []string
}

// NewMemoryStore crea un store vacio, usado como backend o como espejo del FallbackStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notifications: make(map[string][]domain.Notification),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) InsertMessage(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MemoryStore) FindConversation(_ context.Context, a, b string) ([]domain.Message, error) {
	s.mu.RLock()
	out := lo.Filter(s.messages, func(m domain.Message, _ int) bool {
		return m.Involves(a, b)
	})
	s.mu.RUnlock()
	sortConversation(out)
	return out, nil
}

func (s *MemoryStore) InsertNotification(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ToUser] = append(s.notifications[n.ToUser], n)
	return nil
}

func (s *MemoryStore) FindUnread(_ context.Context, user string) ([]domain.Notification, error) {
	s.mu.RLock()
	out := lo.Filter(s.notifications[user], func(n domain.Notification, _ int) bool {
		return !n.Read
	})
	s.mu.RUnlock()
	sortUnread(out)
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, fromUser, toUser string) error {
	s.markWhere(toUser, func(n domain.Notification) bool { return n.FromUser == fromUser })
	return nil
}

func (s *MemoryStore) MarkOneRead(_ context.Context, user, notificationID string) error {
	s.markWhere(user, func(n domain.Notification) bool { return n.ID == notificationID })
	return nil
}

func (s *MemoryStore) ClearAll(_ context.Context, user string) error {
	s.markWhere(user, func(domain.Notification) bool { return true })
	return nil
}

func (s *MemoryStore) SeedUsers(_ context.Context, usernames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = lo.Union(s.users, usernames)
	return nil
}

func (s *MemoryStore) markWhere(user string, match func(domain.Notification) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[user]
	for i := range list {
		if !list[i].Read && match(list[i]) {
			list[i].Read = true
		}
	}
}
