// Package mongo stores users, projects and tasks in MongoDB collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"teamTracker/internal/logger"
	repo "teamTracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const slowOp = 100 * time.Millisecond

const (
	usersCollection    = "users"
	projectsCollection = "projects"
	tasksCollection    = "tasks"
	claimsCollection   = "system_claims"
)

type Storage struct {
	client *mongo.Client
	db     *mongo.Database
	// noTxn is set once the server refuses a transaction.
	noTxn atomic.Bool
}

func New(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("Repository: Failed to connect to MongoDB", err)
		return nil, fmt.Errorf("connect mongo: %w", mapError(err))
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("Repository: Mongo ping failed", err)
		return nil, fmt.Errorf("ping mongo: %w", mapError(err))
	}

	s := &Storage{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Repository: Connected to MongoDB", zap.String("database", database))
	return s, nil
}

func (s *Storage) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		logger.Error("Repository: Failed to disconnect MongoDB", err)
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	logger.Info("Repository: MongoDB client closed")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("Repository: Mongo ping failed", err)
		return fmt.Errorf("ping mongo: %w", mapError(err))
	}
	return nil
}

func (s *Storage) Users() *UserStore {
	return &UserStore{
		c:       s.db.Collection(usersCollection),
		claims:  s.db.Collection(claimsCollection),
		storage: s,
	}
}

func (s *Storage) Projects() *ProjectStore {
	return &ProjectStore{c: s.db.Collection(projectsCollection)}
}

func (s *Storage) Tasks() *TaskStore {
	return &TaskStore{c: s.db.Collection(tasksCollection)}
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		tasksCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_by", Value: 1}}},
			{Keys: newestFirstSort},
		},
		projectsCollection: {
			{Keys: newestFirstSort},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "deleted", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			logger.Error("Repository: Failed to create indexes", err, zap.String("collection", name))
			return fmt.Errorf("create %s indexes: %w", name, mapError(err))
		}
	}
	return nil
}

// mapError tags a driver error with the storage failure kind it represents.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %w", repo.ErrNotFound, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", repo.ErrAlreadyExists, err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
	}

	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(13) || se.HasErrorCode(18)) {
		return fmt.Errorf("%w: %w", repo.ErrPermissionDenied, err)
	}
	return err
}

func warnIfSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowOp {
		logger.Warn("Repository: Slow operation", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}

var newestFirstSort = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
