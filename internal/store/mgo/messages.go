package mgo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/projecthub/backend/internal/model/chat"
)

// MessageStore implements chat.MessageStore on the chat_messages collection.
type MessageStore struct {
	coll *mongo.Collection
}

func (s *MessageStore) Append(ctx context.Context, m chat.Message) error {
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]chat.Message, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return out, nil
}
