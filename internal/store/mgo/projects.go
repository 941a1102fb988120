package mgo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/projecthub/backend/internal/model/project"
)

// ProjectStore implements project.Store on the projects collection.
type ProjectStore struct {
	coll *mongo.Collection
}

func (s *ProjectStore) Create(ctx context.Context, p project.Project) error {
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *ProjectStore) FindByID(ctx context.Context, id string) (project.Project, error) {
	var p project.Project
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return project.Project{}, project.ErrNotFound
	}
	if err != nil {
		return project.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (s *ProjectStore) List(ctx context.Context) ([]project.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer cur.Close(ctx)

	var out []project.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return out, nil
}

func (s *ProjectStore) Update(ctx context.Context, id string, upd project.Update) (project.Project, error) {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p project.Project
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return project.Project{}, project.ErrNotFound
	}
	if err != nil {
		return project.Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return project.ErrNotFound
	}
	return nil
}
