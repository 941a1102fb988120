package mgo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zhouzirui/projecthub/backend/internal/model/user"
)

// UserStore implements user.Store on the users collection.
type UserStore struct {
	coll *mongo.Collection
}

func (s *UserStore) Create(ctx context.Context, u user.User) error {
	if err := s.coll.FindOne(ctx, bson.M{"username": u.Username}).Err(); err == nil {
		return user.ErrUsernameTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("check username: %w", err)
	}

	if u.Email != "" {
		if err := s.coll.FindOne(ctx, bson.M{"email": u.Email}).Err(); err == nil {
			return user.ErrEmailTaken
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("check email: %w", err)
		}
	}

	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (user.User, error) {
	return s.findOne(ctx, bson.M{"id": id})
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStore) FindByUsernameOrEmail(ctx context.Context, value string) (user.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": value},
		bson.M{"email": value},
	}})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	var u user.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context) ([]user.User, error) {
	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var out []user.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateOne(ctx, id, bson.M{"password_hash": hash})
}

func (s *UserStore) UpdateRole(ctx context.Context, id, role string) error {
	return s.updateOne(ctx, id, bson.M{"role": role})
}

func (s *UserStore) updateOne(ctx context.Context, id string, set bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}
