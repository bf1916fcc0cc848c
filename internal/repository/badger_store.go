package repository

import (
	"context"
	"errors"
	"fmt"
	"encoding/hex"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"peer-chat/internal/domain"
)

// BadgerStore implementa Store sobre un badger embebido.
//
// Las claves tienen la forma "{prefijo}:{duenio_hex}:{timestamp_19_digitos}:{secuencia_20_digitos}" para que
// un scan por prefijo devuelva los registros en orden cronologico y, en empates, en orden de insercion.
// Los nombres van en hex: ningun usuario puede producir el prefijo de otro.
// Los valores se codifican en BSON, igual que los documentos de MongoStore.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore reserva la secuencia de insercion. Llamar Close al terminar.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte("seq:records"), 128)
	if err != nil {
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func (s *BadgerStore) Name() string { return "badger" }

// Close libera los ids de secuencia reservados y no usados.
func (s *BadgerStore) Close() error {
	return s.seq.Release()
}

func (s *BadgerStore) InsertMessage(ctx context.Context, msg domain.Message) error {
	key, err := s.recordKey(messagePrefix(msg.FromUser, msg.ToUser), msg.CreatedAt)
	if err != nil {
		return err
	}
	return s.put(ctx, key, msg)
}

func (s *BadgerStore) FindConversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	msgs := []domain.Message{}
	err := s.scan(ctx, messagePrefix(a, b), func(_ []byte, raw []byte) error {
		var m domain.Message
		if err := bson.Unmarshal(raw, &m); err != nil {
			return err
		}
		if m.Involves(a, b) {
			msgs = append(msgs, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *BadgerStore) InsertNotification(ctx context.Context, n domain.Notification) error {
	key, err := s.recordKey(notificationPrefix(n.ToUser), n.CreatedAt)
	if err != nil {
		return err
	}
	return s.put(ctx, key, n)
}

func (s *BadgerStore) FindUnread(ctx context.Context, user string) ([]domain.Notification, error) {
	notifs := []domain.Notification{}
	err := s.scan(ctx, notificationPrefix(user), func(_ []byte, raw []byte) error {
		var n domain.Notification
		if err := bson.Unmarshal(raw, &n); err != nil {
			return err
		}
		if !n.Read && n.ToUser == user {
			notifs = append(notifs, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(notifs)
	return notifs, nil
}

func (s *BadgerStore) MarkRead(ctx context.Context, fromUser, toUser string) error {
	return s.markWhere(ctx, toUser, func(n domain.Notification) bool { return n.FromUser == fromUser })
}

func (s *BadgerStore) MarkOneRead(ctx context.Context, user, notificationID string) error {
	return s.markWhere(ctx, user, func(n domain.Notification) bool { return n.ID == notificationID })
}

func (s *BadgerStore) ClearAll(ctx context.Context, user string) error {
	return s.markWhere(ctx, user, func(domain.Notification) bool { return true })
}

func (s *BadgerStore) SeedUsers(ctx context.Context, usernames []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		for _, u := range usernames {
			key := []byte("user:" + u)
			_, err := txn.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			raw, err := bson.Marshal(bson.M{"username": u, "created_at": now})
			if err != nil {
				return err
			}
			if err := txn.Set(key, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) markWhere(ctx context.Context, user string, match func(domain.Notification) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := []byte(notificationPrefix(user))
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key []byte
			raw []byte
		}
		var updates []pending
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var n domain.Notification
			if err := bson.Unmarshal(raw, &n); err != nil {
				return err
			}
			if n.Read || n.ToUser != user || !match(n) {
				continue
			}
			n.Read = true
			updated, err := bson.Marshal(n)
			if err != nil {
				return err
			}
			updates = append(updates, pending{key: item.KeyCopy(nil), raw: updated})
		}
		for _, u := range updates {
			if err := txn.Set(u.key, u.raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) recordKey(prefix string, at time.Time) (string, error) {
	n, err := s.seq.Next()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%019d:%020d", prefix, at.UnixNano(), n), nil
}

func (s *BadgerStore) put(ctx context.Context, key string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

func (s *BadgerStore) scan(ctx context.Context, prefix string, fn func(key, raw []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := []byte(prefix)
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				return fn(item.Key(), val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// messagePrefix es independiente de la direccion del mensaje.
func messagePrefix(a, b string) string {
	a, b = keySafe(a), keySafe(b)
	if a > b {
		a, b = b, a
	}
	return "msg:" + a + "|" + b + ":"
}

func notificationPrefix(user string) string {
	return "notif:" + keySafe(user) + ":"
}

func keySafe(s string) string {
	return hex.EncodeToString([]byte(s))
}
