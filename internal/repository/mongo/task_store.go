package mongo

import (
	"context"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/task"
	repo "teamTracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type TaskStore struct {
	c *mongo.Collection
}

func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer warnIfSlow("tasks.create", start)

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		logger.Error("Repository: Failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert task: %w", mapError(err))
	}
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, mapError(err))
	}
	return &t, nil
}

func (s *TaskStore) Update(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer warnIfSlow("tasks.update", start)

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		logger.Error("Repository: Failed to update task", err, zap.String("task_id", t.ID))
		return fmt.Errorf("update task: %w", mapError(err))
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Error("Repository: Failed to delete task", err, zap.String("task_id", id))
		return fmt.Errorf("delete task: %w", mapError(err))
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *TaskStore) ListByProject(ctx context.Context, projectID, createdBy string) ([]*task.Task, error) {
	filter := bson.M{"project_id": projectID}
	if createdBy != "" {
		filter["created_by"] = createdBy
	}
	return s.find(ctx, "tasks.list_by_project", filter)
}

func (s *TaskStore) ListAll(ctx context.Context) ([]*task.Task, error) {
	return s.find(ctx, "tasks.list_all", bson.M{})
}

func (s *TaskStore) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		logger.Error("Repository: Failed to delete project tasks", err, zap.String("project_id", projectID))
		return 0, fmt.Errorf("delete project tasks: %w", mapError(err))
	}
	return res.DeletedCount, nil
}

func (s *TaskStore) MarkOrphaned(ctx context.Context, projectID string, at time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"project_id": projectID, "orphaned": false},
		bson.M{"$set": bson.M{"orphaned": true, "updated_at": at}})
	if err != nil {
		logger.Error("Repository: Failed to orphan project tasks", err, zap.String("project_id", projectID))
		return 0, fmt.Errorf("orphan project tasks: %w", mapError(err))
	}
	return res.ModifiedCount, nil
}

func (s *TaskStore) find(ctx context.Context, op string, filter bson.M) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(op, start)

	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(newestFirstSort))
	if err != nil {
		logger.Error("Repository: Failed to list tasks", err, zap.String("op", op))
		return nil, fmt.Errorf("list tasks: %w", mapError(err))
	}
	tasks := []*task.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", mapError(err))
	}
	return tasks, nil
}
