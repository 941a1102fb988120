package mgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
)

// CodeStore implements reset.CodeStore on the password_resets collection.
type CodeStore struct {
	coll *mongo.Collection
}

func (s *CodeStore) Save(ctx context.Context, c reset.Code) error {
	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert reset code: %w", err)
	}
	return nil
}

func (s *CodeStore) Consume(ctx context.Context, userID, code string) (reset.Code, error) {
	filter := bson.M{"user_id": userID, "code": code, "used": false}

	var c reset.Code
	err := s.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return reset.Code{}, reset.ErrCodeNotFound
	}
	if err != nil {
		return reset.Code{}, fmt.Errorf("find reset code: %w", err)
	}

	if time.Now().UTC().After(c.ExpiresAt) {
		return reset.Code{}, reset.ErrCodeExpired
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"id": c.ID}, bson.M{"$set": bson.M{"used": true}}); err != nil {
		return reset.Code{}, fmt.Errorf("mark reset code used: %w", err)
	}
	c.Used = true
	return c, nil
}

// RequestStore implements reset.RequestStore on admin_reset_requests.
type RequestStore struct {
	coll *mongo.Collection
}

func (s *RequestStore) Create(ctx context.Context, r reset.Request) error {
	if _, err := s.coll.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert reset request: %w", err)
	}
	return nil
}

func (s *RequestStore) ListPending(ctx context.Context) ([]reset.Request, error) {
	cur, err := s.coll.Find(ctx, bson.M{"status": reset.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("list reset requests: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]reset.Request, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reset requests: %w", err)
	}
	return out, nil
}

func (s *RequestStore) CompleteForUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"status": reset.StatusCompleted, "completed_at": now}}
	if _, err := s.coll.UpdateMany(ctx, bson.M{"user_id": userID, "status": reset.StatusPending}, update); err != nil {
		return fmt.Errorf("complete reset requests: %w", err)
	}
	return nil
}
