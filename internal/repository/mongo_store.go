package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"peer-chat/internal/domain"
)

const (
	messagesCollection      = "messages"
	notificationsCollection = "notifications"
	usersCollection         = "users"
)

// MongoStore implementa Store sobre las colecciones messages, notifications y users.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore usa db tal cual; EnsureIndexes se llama aparte al arrancar.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) messages() *mongo.Collection      { return s.db.Collection(messagesCollection) }
func (s *MongoStore) notifications() *mongo.Collection { return s.db.Collection(notificationsCollection) }
func (s *MongoStore) users() *mongo.Collection         { return s.db.Collection(usersCollection) }

// EnsureIndexes crea los indices usados por las consultas de conversacion y no leidas.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.messages(): {
			{Keys: bson.D{{Key: "from_user", Value: 1}, {Key: "to_user", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		s.notifications(): {
			{Keys: bson.D{{Key: "to_user", Value: 1}, {Key: "read", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.users(): {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.messages().InsertOne(ctx, msg)
	return err
}

func (s *MongoStore) FindConversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from_user": a, "to_user": b},
		bson.M{"from_user": b, "to_user": a},
	}}
	// _id es un ObjectId creciente, desempata por orden de insercion.
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.messages().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	msgs := []domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *MongoStore) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.notifications().InsertOne(ctx, n)
	return err
}

func (s *MongoStore) FindUnread(ctx context.Context, user string) ([]domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.notifications().Find(ctx, bson.M{"to_user": user, "read": false}, opts)
	if err != nil {
		return nil, err
	}
	notifs := []domain.Notification{}
	if err := cur.All(ctx, &notifs); err != nil {
		return nil, err
	}
	return notifs, nil
}

func (s *MongoStore) MarkRead(ctx context.Context, fromUser, toUser string) error {
	return s.setRead(ctx, bson.M{"from_user": fromUser, "to_user": toUser, "read": false})
}

func (s *MongoStore) MarkOneRead(ctx context.Context, user, notificationID string) error {
	return s.setRead(ctx, bson.M{"id": notificationID, "to_user": user, "read": false})
}

func (s *MongoStore) ClearAll(ctx context.Context, user string) error {
	return s.setRead(ctx, bson.M{"to_user": user, "read": false})
}

func (s *MongoStore) SeedUsers(ctx context.Context, usernames []string) error {
	now := time.Now().UTC()
	for _, u := range usernames {
		_, err := s.users().UpdateOne(ctx,
			bson.M{"username": u},
			bson.M{"$setOnInsert": bson.M{"username": u, "created_at": now}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u, err)
		}
	}
	return nil
}

func (s *MongoStore) setRead(ctx context.Context, filter bson.M) error {
	_, err := s.notifications().UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	return err
}
