package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	repo "teamTracker/internal/repository"

	"go.uber.org/zap"
)

type UserStorage struct {
	storage map[string]*user.User
	mtx     *sync.RWMutex
	// bootstrapped flips once the first profile has been written; it never
	// goes back, even if that user is later deleted.
	bootstrapped bool
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		storage: make(map[string]*user.User),
		mtx:     &sync.RWMutex{},
	}
}

func (s *UserStorage) HealthCheck(ctx context.Context) error {
	return nil
}

// CreateWithBootstrap stores the profile and sets its role: admin for the
// very first profile, user for everyone after.
func (s *UserStorage) CreateWithBootstrap(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[u.ID]; ok {
		return repo.ErrAlreadyExists
	}

	u.Role = policy.BootstrapRole(!s.bootstrapped)
	s.bootstrapped = true

	c := *u
	s.storage[u.ID] = &c

	if u.Role == user.RoleAdmin {
		logger.Info("Repository: First profile promoted to admin", zap.String("user_id", u.ID))
	}
	return nil
}

func (s *UserStorage) GetByID(ctx context.Context, id string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *u
	return &c, nil
}

// List returns every profile, deleted ones included, oldest first.
func (s *UserStorage) List(ctx context.Context) ([]*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*user.User, 0, len(s.storage))
	for _, u := range s.storage {
		c := *u
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *UserStorage) SetRole(ctx context.Context, id string, role user.Role) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.storage[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Role = role
	return nil
}

func (s *UserStorage) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.storage[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Deleted = true
	u.DeletedAt = &at
	return nil
}

func (s *UserStorage) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.storage[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// CountAdmins counts admins that are not soft-deleted.
func (s *UserStorage) CountAdmins(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	n := 0
	for _, u := range s.storage {
		if u.Role == user.RoleAdmin && !u.Deleted {
			n++
		}
	}
	return n, nil
}
