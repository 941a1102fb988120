package mgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/projecthub/backend/internal/model/file"
)

// FileStore implements file.Store on the files collection.
type FileStore struct {
	coll *mongo.Collection
}

func (s *FileStore) Create(ctx context.Context, f file.File) error {
	if _, err := s.coll.InsertOne(ctx, f); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (s *FileStore) FindByID(ctx context.Context, id string) (file.File, error) {
	var f file.File
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return file.File{}, file.ErrNotFound
	}
	if err != nil {
		return file.File{}, fmt.Errorf("find file: %w", err)
	}
	return f, nil
}

func (s *FileStore) ListByProject(ctx context.Context, projectID string) ([]file.File, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]file.File, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return out, nil
}

func (s *FileStore) Update(ctx context.Context, id string, upd file.Update) (file.File, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var f file.File
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return file.File{}, file.ErrNotFound
	}
	if err != nil {
		return file.File{}, fmt.Errorf("update file: %w", err)
	}
	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if res.DeletedCount == 0 {
		return file.ErrNotFound
	}
	return nil
}

func (s *FileStore) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"project_id": projectID}); err != nil {
		return fmt.Errorf("delete project files: %w", err)
	}
	return nil
}
