// Package app assembles the tracker from configuration: logger, storage
// backend, identity provider, role cache, services and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"teamTracker/internal/auth"
	"teamTracker/internal/auth/firebase"
	"teamTracker/internal/auth/local"
	"teamTracker/internal/config"
	"teamTracker/internal/handlers"
	"teamTracker/internal/identity"
	"teamTracker/internal/logger"
	"teamTracker/internal/repository/inmemory"
	"teamTracker/internal/repository/mongo"
	"teamTracker/internal/repository/postgres"
	"teamTracker/internal/service"
	"teamTracker/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// stores is the storage backend as the services consume it.
type stores struct {
	users    service.UserRepository
	projects service.ProjectRepository
	tasks    service.TaskRepository
	health   []service.HealthChecker
}

type App struct {
	config    *config.Config
	server    *http.Server
	handler   http.Handler
	worker    *worker.ReconcileWorker
	shutdowns []func(context.Context) // run in reverse order on shutdown
}

func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Init builds every component. On error, whatever was already opened is
// closed again.
func (a *App) Init(ctx context.Context) (err error) {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.onShutdown(func(context.Context) {
		logger.Info("Shutting down logging...")
		logger.Sync()
	})
	defer func() {
		if err != nil {
			a.Shutdown(context.Background())
		}
	}()

	st, err := a.initStorage(ctx)
	if err != nil {
		return err
	}

	provider, err := a.initAuth(ctx)
	if err != nil {
		return err
	}

	cache, cacheHealth, err := a.initCache(ctx)
	if err != nil {
		return err
	}
	if cacheHealth != nil {
		st.health = append(st.health, cacheHealth)
	}

	resolver := identity.NewResolver(st.users, cache)
	resolver.Watch(provider)

	rules := a.config.Rules()
	h := handlers.New(
		service.NewTaskService(st.tasks, st.projects, st.users, rules),
		service.NewProjectService(st.projects, st.tasks, rules),
		service.NewUserService(st.users, provider, resolver, rules),
		resolver,
		service.NewHealthService(st.health...),
	)

	if wc := a.config.Worker; wc.Enabled {
		a.worker = worker.NewReconcileWorker(st.tasks, st.projects, rules.OnProjectDelete, wc.Interval, wc.BatchSize)
	}

	a.handler = a.routes(h, provider, resolver)
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.handler,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App initialized",
		zap.String("storage", a.config.Storage.Type),
		zap.String("auth", a.config.Auth.Provider),
		zap.Bool("redis_cache", a.config.Redis.Addr != ""),
		zap.String("on_project_delete", string(rules.OnProjectDelete)),
		zap.Bool("allow_reopen", rules.AllowReopen))
	return nil
}

func (a *App) initStorage(ctx context.Context) (*stores, error) {
	switch a.config.Storage.Type {
	case "postgres":
		db := a.config.Database
		if db.Migrate {
			if err := postgres.Migrate(db.URL); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
		pg, err := postgres.New(ctx, db.URL, postgres.PoolConfig{
			MaxConns:        db.MaxConnections,
			MinConns:        db.MinConnections,
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.onShutdown(func(context.Context) {
			logger.Info("Closing postgres pool...")
			pg.Close()
		})
		return &stores{users: pg.Users(), projects: pg.Projects(), tasks: pg.Tasks(), health: []service.HealthChecker{pg}}, nil

	case "mongo":
		m, err := mongo.New(ctx, a.config.Mongo.URI, a.config.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.onShutdown(func(ctx context.Context) {
			logger.Info("Disconnecting from mongo...")
			if err := m.Close(ctx); err != nil {
				logger.Error("Failed to disconnect from mongo", err)
			}
		})
		return &stores{users: m.Users(), projects: m.Projects(), tasks: m.Tasks(), health: []service.HealthChecker{m}}, nil

	case "inmemory":
		users := inmemory.NewUserStorage()
		projects := inmemory.NewProjectStorage()
		tasks := inmemory.NewTaskStorage()
		logger.Warn("Using in-memory storage, data is lost on restart")
		return &stores{users: users, projects: projects, tasks: tasks, health: []service.HealthChecker{users, projects, tasks}}, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", a.config.Storage.Type)
}

func (a *App) initAuth(ctx context.Context) (auth.Provider, error) {
	cfg := a.config.Auth
	switch cfg.Provider {
	case "firebase":
		p, err := firebase.New(ctx, firebase.Config{CredentialsPath: cfg.CredentialsPath, WebAPIKey: cfg.WebAPIKey})
		if err != nil {
			return nil, fmt.Errorf("init firebase auth: %w", err)
		}
		return p, nil
	case "local":
		p, err := local.New(local.Options{Secret: []byte(cfg.Secret), TokenTTL: cfg.TokenTTL})
		if err != nil {
			return nil, fmt.Errorf("init local auth: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
}

// initCache returns nil for both values when no Redis address is set, and
// the resolver falls back to its in-process cache.
func (a *App) initCache(ctx context.Context) (identity.Cache, service.HealthChecker, error) {
	rc := a.config.Redis
	if rc.Addr == "" {
		return nil, nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	a.onShutdown(func(context.Context) {
		logger.Info("Closing redis client...")
		if err := client.Close(); err != nil {
			logger.Error("Failed to close redis client", err)
		}
	})
	return identity.NewRedisCache(client, rc.TTL), redisHealth{client}, nil
}

type redisHealth struct {
	client *redis.Client
}

func (r redisHealth) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Handler exposes the router, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		go a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.Shutdown(context.Background())
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error("Server shutdown failed", err)
	}
	a.Shutdown(shutdownCtx)
	return err
}

// Shutdown runs the registered hooks, newest first.
func (a *App) Shutdown(ctx context.Context) {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i](ctx)
	}
	a.shutdowns = nil
}

func (a *App) onShutdown(fn func(context.Context)) {
	a.shutdowns = append(a.shutdowns, fn)
}
