package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"teamTracker/internal/models/task"
	repo "teamTracker/internal/repository"
)

type TaskStorage struct {
	storage map[string]*task.Task
	mtx     *sync.RWMutex
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[string]*task.Task),
		mtx:     &sync.RWMutex{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[t.ID]; ok {
		return repo.ErrAlreadyExists
	}
	s.storage[t.ID] = t.Clone()
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *TaskStorage) Update(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[t.ID]; !ok {
		return repo.ErrNotFound
	}
	s.storage[t.ID] = t.Clone()
	return nil
}

func (s *TaskStorage) Delete(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	return nil
}

// ListByProject returns the project's tasks, newest first. An empty
// createdBy returns every task of the project.
func (s *TaskStorage) ListByProject(ctx context.Context, projectID, createdBy string) ([]*task.Task, error) {
	return s.filter(func(t *task.Task) bool {
		return t.ProjectID == projectID && (createdBy == "" || t.CreatedBy == createdBy)
	}), nil
}

func (s *TaskStorage) ListAll(ctx context.Context) ([]*task.Task, error) {
	return s.filter(func(*task.Task) bool { return true }), nil
}

func (s *TaskStorage) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var n int64
	for id, t := range s.storage {
		if t.ProjectID == projectID {
			delete(s.storage, id)
			n++
		}
	}
	return n, nil
}

func (s *TaskStorage) MarkOrphaned(ctx context.Context, projectID string, at time.Time) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var n int64
	for _, t := range s.storage {
		if t.ProjectID == projectID && !t.Orphaned {
			t.Orphaned = true
			stamp := at
			t.UpdatedAt = &stamp
			n++
		}
	}
	return n, nil
}

func (s *TaskStorage) filter(keep func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.storage {
		if keep(t) {
			res = append(res, t.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return newerFirst(res[i].CreatedAt, res[j].CreatedAt, res[i].ID, res[j].ID)
	})
	return res
}

// newerFirst orders by creation time descending, then by id descending so
// equal timestamps still come back in a stable order.
func newerFirst(a, b time.Time, aID, bID string) bool {
	if a.Equal(b) {
		return aID > bID
	}
	return a.After(b)
}
