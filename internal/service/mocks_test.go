package service_test

import (
	"context"
	"time"

	"teamTracker/internal/auth"
	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
	"teamTracker/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockTaskRepository - task repository mock
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTaskRepository) ListByProject(ctx context.Context, projectID, createdBy string) ([]*task.Task, error) {
	args := m.Called(ctx, projectID, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListAll(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) MarkOrphaned(ctx context.Context, projectID string, at time.Time) (int64, error) {
	args := m.Called(ctx, projectID, at)
	return args.Get(0).(int64), args.Error(1)
}

// MockProjectRepository - project repository mock
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, p *project.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, p *project.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProjectRepository) List(ctx context.Context) ([]*project.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*project.Project), args.Error(1)
}

// MockUserRepository - user repository mock
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateWithBootstrap(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserRepository) SetRole(ctx context.Context, id string, role user.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) CountAdmins(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockProvider - identity provider mock
type MockProvider struct {
	auth.Notifier
	mock.Mock
}

func (m *MockProvider) CreateAccount(ctx context.Context, email, password string) (auth.Account, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Account), args.Error(1)
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (auth.Account, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Account), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *MockProvider) Verify(ctx context.Context, idToken string) (auth.Account, error) {
	args := m.Called(ctx, idToken)
	return args.Get(0).(auth.Account), args.Error(1)
}

// MockResolver - principal resolver mock
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Refresh(ctx context.Context, uid, email string) user.Principal {
	return m.Called(ctx, uid, email).Get(0).(user.Principal)
}

func (m *MockResolver) Invalidate(ctx context.Context, uid string) {
	m.Called(ctx, uid)
}

var (
	_ service.TaskRepository    = (*MockTaskRepository)(nil)
	_ service.ProjectRepository = (*MockProjectRepository)(nil)
	_ service.UserRepository    = (*MockUserRepository)(nil)
	_ auth.Provider             = (*MockProvider)(nil)
	_ service.PrincipalResolver = (*MockResolver)(nil)
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() service.Option {
	return service.WithClock(func() time.Time { return fixedNow })
}

var (
	adminP = user.Principal{UID: "admin", Email: "admin@example.com", Role: user.RoleAdmin}
	aliceP = user.Principal{UID: "alice", Email: "alice@example.com", Role: user.RoleUser}
	bobP   = user.Principal{UID: "bob", Email: "bob@example.com", Role: user.RoleUser}
	anonP  = user.Principal{}
)
