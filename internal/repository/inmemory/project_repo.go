package inmemory

import (
	"context"
	"sort"
	"sync"

	"teamTracker/internal/models/project"
	repo "teamTracker/internal/repository"
)

type ProjectStorage struct {
	storage map[string]*project.Project
	mtx     *sync.RWMutex
}

func NewProjectStorage() *ProjectStorage {
	return &ProjectStorage{
		storage: make(map[string]*project.Project),
		mtx:     &sync.RWMutex{},
	}
}

func (s *ProjectStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *ProjectStorage) Create(ctx context.Context, p *project.Project) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[p.ID]; ok {
		return repo.ErrAlreadyExists
	}
	c := *p
	s.storage[p.ID] = &c
	return nil
}

func (s *ProjectStorage) GetByID(ctx context.Context, id string) (*project.Project, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	p, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *ProjectStorage) Update(ctx context.Context, p *project.Project) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[p.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *p
	s.storage[p.ID] = &c
	return nil
}

func (s *ProjectStorage) Delete(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	return nil
}

// List returns all projects, newest first.
func (s *ProjectStorage) List(ctx context.Context) ([]*project.Project, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*project.Project, 0, len(s.storage))
	for _, p := range s.storage {
		c := *p
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool {
		return newerFirst(res[i].CreatedAt, res[j].CreatedAt, res[i].ID, res[j].ID)
	})
	return res, nil
}
