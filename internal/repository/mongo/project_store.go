package mongo

import (
	"context"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/project"
	repo "teamTracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type ProjectStore struct {
	c *mongo.Collection
}

func (s *ProjectStore) Create(ctx context.Context, p *project.Project) error {
	start := time.Now()
	defer warnIfSlow("projects.create", start)

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		logger.Error("Repository: Failed to insert project", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert project: %w", mapError(err))
	}
	return nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id string) (*project.Project, error) {
	var p project.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, mapError(err))
	}
	return &p, nil
}

func (s *ProjectStore) Update(ctx context.Context, p *project.Project) error {
	start := time.Now()
	defer warnIfSlow("projects.update", start)

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		logger.Error("Repository: Failed to update project", err, zap.String("project_id", p.ID))
		return fmt.Errorf("update project: %w", mapError(err))
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Error("Repository: Failed to delete project", err, zap.String("project_id", id))
		return fmt.Errorf("delete project: %w", mapError(err))
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *ProjectStore) List(ctx context.Context) ([]*project.Project, error) {
	start := time.Now()
	defer warnIfSlow("projects.list", start)

	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(newestFirstSort))
	if err != nil {
		logger.Error("Repository: Failed to list projects", err)
		return nil, fmt.Errorf("list projects: %w", mapError(err))
	}
	projects := []*project.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", mapError(err))
	}
	return projects, nil
}
