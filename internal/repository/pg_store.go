package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"peer-chat/internal/domain"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS messages (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	from_user  TEXT NOT NULL,
	to_user    TEXT NOT NULL,
	message    TEXT NOT NULL,
	"timestamp" TIMESTAMPTZ NOT NULL,
	"date"     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_pair_idx ON messages (from_user, to_user, "timestamp");

CREATE TABLE IF NOT EXISTS notifications (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	from_user  TEXT NOT NULL,
	to_user    TEXT NOT NULL,
	message    TEXT NOT NULL,
	"timestamp" TIMESTAMPTZ NOT NULL,
	"date"     TEXT NOT NULL,
	type       TEXT NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS notifications_unread_idx ON notifications (to_user, read, "timestamp" DESC);

CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
);
`

// PgStore implementa Store usando pgxpool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore crea el store sobre un pool ya conectado.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Name() string { return "postgres" }

// EnsureSchema crea las tablas si no existen.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, pgSchema)
	return err
}

func (s *PgStore) InsertMessage(ctx context.Context, msg domain.Message) error {
	const query = `
		INSERT INTO messages (id, from_user, to_user, message, "timestamp", "date")
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		msg.ID,
		msg.FromUser,
		msg.ToUser,
		msg.Body,
		msg.CreatedAt,
		msg.Day,
	)
	return err
}

func (s *PgStore) FindConversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	const query = `
		SELECT id, from_user, to_user, message, "timestamp", "date"
		FROM messages
		WHERE (from_user = $1 AND to_user = $2) OR (from_user = $2 AND to_user = $1)
		ORDER BY "timestamp" ASC, seq ASC
	`
	rows, err := s.pool.Query(ctx, query, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.FromUser,
			&msg.ToUser,
			&msg.Body,
			&msg.CreatedAt,
			&msg.Day,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *PgStore) InsertNotification(ctx context.Context, n domain.Notification) error {
	const query = `
		INSERT INTO notifications (id, from_user, to_user, message, "timestamp", "date", type, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		n.ID,
		n.FromUser,
		n.ToUser,
		n.Body,
		n.CreatedAt,
		n.Day,
		n.Kind,
		n.Read,
	)
	return err
}

func (s *PgStore) FindUnread(ctx context.Context, user string) ([]domain.Notification, error) {
	const query = `
		SELECT id, from_user, to_user, message, "timestamp", "date", type, read
		FROM notifications
		WHERE to_user = $1 AND read = FALSE
		ORDER BY "timestamp" DESC, seq DESC
	`
	rows, err := s.pool.Query(ctx, query, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifs := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.FromUser,
			&n.ToUser,
			&n.Body,
			&n.CreatedAt,
			&n.Day,
			&n.Kind,
			&n.Read,
		); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifs, nil
}

func (s *PgStore) MarkRead(ctx context.Context, fromUser, toUser string) error {
	const query = `
		UPDATE notifications SET read = TRUE
		WHERE from_user = $1 AND to_user = $2 AND read = FALSE
	`
	_, err := s.pool.Exec(ctx, query, fromUser, toUser)
	return err
}

func (s *PgStore) MarkOneRead(ctx context.Context, user, notificationID string) error {
	const query = `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND to_user = $2 AND read = FALSE
	`
	_, err := s.pool.Exec(ctx, query, notificationID, user)
	return err
}

func (s *PgStore) ClearAll(ctx context.Context, user string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE to_user = $1 AND read = FALSE`
	_, err := s.pool.Exec(ctx, query, user)
	return err
}

func (s *PgStore) SeedUsers(ctx context.Context, usernames []string) error {
	const query = `
		INSERT INTO users (username, created_at)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, u := range usernames {
		batch.Queue(query, u, now)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}
