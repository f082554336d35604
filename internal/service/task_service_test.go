package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	"teamTracker/internal/repository"
	"teamTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type taskMocks struct {
	tasks    *MockTaskRepository
	projects *MockProjectRepository
	users    *MockUserRepository
}

func newTaskService(rules policy.Rules) (*service.TaskService, taskMocks) {
	m := taskMocks{
		tasks:    new(MockTaskRepository),
		projects: new(MockProjectRepository),
		users:    new(MockUserRepository),
	}
	return service.NewTaskService(m.tasks, m.projects, m.users, rules, fixedClock()), m
}

func (m taskMocks) assertExpectations(t *testing.T) {
	m.tasks.AssertExpectations(t)
	m.projects.AssertExpectations(t)
	m.users.AssertExpectations(t)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var be *service.BusinessError
	require.True(t, errors.As(err, &be), "expected BusinessError, got %T: %v", err, err)
	assert.Equal(t, code, be.Code)
}

// TestTaskService_CreateTask covers validation, authorization and stamping
func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	proj := &project.Project{ID: "p1", Title: "Alpha"}

	tests := []struct {
		name      string
		p         user.Principal
		in        service.NewTask
		setupMock func(taskMocks)
		wantCode  string
		check     func(*testing.T, *task.Task)
	}{
		{
			name: "success - own task",
			p:    aliceP,
			in:   service.NewTask{Description: " Write report ", Duration: 90, ProjectID: "p1"},
			setupMock: func(m taskMocks) {
				m.projects.On("GetByID", ctx, "p1").Return(proj, nil)
				m.tasks.On("Create", ctx, mock.AnythingOfType("*task.Task")).Return(nil)
			},
			check: func(t *testing.T, got *task.Task) {
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, "Write report", got.Description)
				assert.Equal(t, task.StatusPending, got.Status)
				assert.Equal(t, "alice", got.CreatedBy)
				assert.Empty(t, got.AssignedBy)
				assert.Equal(t, fixedNow, got.CreatedAt)
				assert.Nil(t, got.CompletedAt)
			},
		},
		{
			name: "success - admin creates for another user",
			p:    adminP,
			in:   service.NewTask{Description: "Review", Duration: 30, ProjectID: "p1", AssigneeID: "bob"},
			setupMock: func(m taskMocks) {
				m.projects.On("GetByID", ctx, "p1").Return(proj, nil)
				m.users.On("GetByID", ctx, "bob").Return(&user.User{ID: "bob", Role: user.RoleUser}, nil)
				m.tasks.On("Create", ctx, mock.AnythingOfType("*task.Task")).Return(nil)
			},
			check: func(t *testing.T, got *task.Task) {
				assert.Equal(t, "bob", got.CreatedBy)
				assert.Equal(t, "admin", got.AssignedBy)
			},
		},
		{
			name:      "error - user creates for someone else",
			p:         aliceP,
			in:        service.NewTask{Description: "x", Duration: 1, ProjectID: "p1", AssigneeID: "bob"},
			setupMock: func(m taskMocks) {},
			wantCode:  service.CodeAuthorization,
		},
		{
			name:      "error - anonymous",
			p:         anonP,
			in:        service.NewTask{Description: "x", Duration: 1, ProjectID: "p1"},
			setupMock: func(m taskMocks) {},
			wantCode:  service.CodeAuthorization,
		},
		{
			name:      "error - empty description",
			p:         aliceP,
			in:        service.NewTask{Description: "   ", Duration: 10, ProjectID: "p1"},
			setupMock: func(m taskMocks) {},
			wantCode:  service.CodeValidation,
		},
		{
			name:      "error - zero duration",
			p:         aliceP,
			in:        service.NewTask{Description: "x", Duration: 0, ProjectID: "p1"},
			setupMock: func(m taskMocks) {},
			wantCode:  service.CodeValidation,
		},
		{
			name:      "error - negative duration",
			p:         aliceP,
			in:        service.NewTask{Description: "x", Duration: -5, ProjectID: "p1"},
			setupMock: func(m taskMocks) {},
			wantCode:  service.CodeValidation,
		},
		{
			name:      "error - missing project id",
			p:         aliceP,
			in:        service.NewTask{Description: "x", Duration: 5},
			setupMock: func(m taskMocks) {},
			wantCode:  service.CodeValidation,
		},
		{
			name: "error - project does not exist",
			p:    aliceP,
			in:   service.NewTask{Description: "x", Duration: 5, ProjectID: "nope"},
			setupMock: func(m taskMocks) {
				m.projects.On("GetByID", ctx, "nope").Return(nil, repository.ErrNotFound)
			},
			wantCode: service.CodeNotFound,
		},
		{
			name: "error - assignee does not exist",
			p:    adminP,
			in:   service.NewTask{Description: "x", Duration: 5, ProjectID: "p1", AssigneeID: "ghost"},
			setupMock: func(m taskMocks) {
				m.projects.On("GetByID", ctx, "p1").Return(proj, nil)
				m.users.On("GetByID", ctx, "ghost").Return(nil, repository.ErrNotFound)
			},
			wantCode: service.CodeNotFound,
		},
		{
			name: "error - store unavailable",
			p:    aliceP,
			in:   service.NewTask{Description: "x", Duration: 5, ProjectID: "p1"},
			setupMock: func(m taskMocks) {
				m.projects.On("GetByID", ctx, "p1").Return(proj, nil)
				m.tasks.On("Create", ctx, mock.Anything).Return(repository.ErrUnavailable)
			},
			wantCode: service.CodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTaskService(policy.DefaultRules())
			tt.setupMock(m)

			got, err := svc.CreateTask(ctx, tt.p, tt.in)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				assert.Nil(t, got)
				if tt.wantCode != service.CodeUpstream {
					m.tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				}
			} else {
				require.NoError(t, err)
				tt.check(t, got)
			}
			m.assertExpectations(t)
		})
	}
}

func TestTaskService_UpstreamKind(t *testing.T) {
	ctx := context.Background()
	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("GetByID", ctx, "t1").Return(nil, repository.ErrPermissionDenied)

	_, err := svc.GetTask(ctx, aliceP, "t1")
	var be *service.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, service.CodeUpstream, be.Code)
	assert.Equal(t, service.KindPermissionDenied, be.Kind())
	assert.ErrorIs(t, err, repository.ErrPermissionDenied)
}

// TestTaskService_MutationsByNonOwner checks that other users are refused before any write
func TestTaskService_MutationsByNonOwner(t *testing.T) {
	ctx := context.Background()
	owned := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusPending, CreatedBy: "alice"}

	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("GetByID", ctx, "t1").Return(owned, nil)

	_, err := svc.UpdateTask(ctx, bobP, "t1", task.WithDescription("hijack"))
	assertCode(t, err, service.CodeAuthorization)

	err = svc.DeleteTask(ctx, bobP, "t1")
	assertCode(t, err, service.CodeAuthorization)

	_, err = svc.ReassignTask(ctx, bobP, "t1", "bob")
	assertCode(t, err, service.CodeAuthorization)

	_, err = svc.GetTask(ctx, bobP, "t1")
	assertCode(t, err, service.CodeAuthorization)

	m.tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	m.tasks.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// TestTaskService_AdminMutatesAnyTask checks admin overrides ownership
func TestTaskService_AdminMutatesAnyTask(t *testing.T) {
	ctx := context.Background()

	for _, creator := range []string{"alice", "bob", ""} {
		t.Run("creator="+creator, func(t *testing.T) {
			svc, m := newTaskService(policy.DefaultRules())
			stored := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusPending, CreatedBy: creator}
			m.tasks.On("GetByID", ctx, "t1").Return(stored, nil)
			m.tasks.On("Update", ctx, mock.AnythingOfType("*task.Task")).Return(nil)
			m.tasks.On("Delete", ctx, "t1").Return(nil)
			m.users.On("GetByID", ctx, "bob").Return(&user.User{ID: "bob"}, nil)

			updated, err := svc.UpdateTask(ctx, adminP, "t1", task.WithNotes("checked"))
			require.NoError(t, err)
			assert.Equal(t, "checked", updated.Notes)

			reassigned, err := svc.ReassignTask(ctx, adminP, "t1", "bob")
			require.NoError(t, err)
			assert.Equal(t, "bob", reassigned.CreatedBy)
			assert.Equal(t, "admin", reassigned.AssignedBy)

			require.NoError(t, svc.DeleteTask(ctx, adminP, "t1"))
			m.assertExpectations(t)
		})
	}
}

func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	earlier := fixedNow.Add(-24 * time.Hour)

	t.Run("completion stamps completed_at once", func(t *testing.T) {
		svc, m := newTaskService(policy.DefaultRules())
		stored := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusInProgress, CreatedBy: "alice"}
		m.tasks.On("GetByID", ctx, "t1").Return(stored, nil).Once()
		m.tasks.On("Update", ctx, mock.AnythingOfType("*task.Task")).Return(nil)

		got, err := svc.UpdateTask(ctx, aliceP, "t1", task.WithStatus(task.StatusCompleted))
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, fixedNow, *got.CompletedAt)
		require.NotNil(t, got.UpdatedAt)
		// the fetched record is not modified in place
		assert.Equal(t, task.StatusInProgress, stored.Status)

		alreadyDone := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusCompleted, CreatedBy: "alice", CompletedAt: &earlier}
		m.tasks.On("GetByID", ctx, "t1").Return(alreadyDone, nil).Once()

		again, err := svc.UpdateTask(ctx, aliceP, "t1", task.WithStatus(task.StatusCompleted))
		require.NoError(t, err)
		assert.Equal(t, earlier, *again.CompletedAt)
	})

	t.Run("invalid patch rejected", func(t *testing.T) {
		svc, m := newTaskService(policy.DefaultRules())
		stored := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusPending, CreatedBy: "alice"}
		m.tasks.On("GetByID", ctx, "t1").Return(stored, nil)

		_, err := svc.UpdateTask(ctx, aliceP, "t1", task.WithDuration(0))
		assertCode(t, err, service.CodeValidation)

		_, err = svc.UpdateTask(ctx, aliceP, "t1", task.WithDescription(""))
		assertCode(t, err, service.CodeValidation)

		_, err = svc.UpdateTask(ctx, aliceP, "t1", task.WithStatus("archived"))
		assertCode(t, err, service.CodeValidation)

		m.tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("reopen follows the rules", func(t *testing.T) {
		rules := policy.DefaultRules()
		rules.AllowReopen = false
		svc, m := newTaskService(rules)
		done := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusCompleted, CreatedBy: "alice", CompletedAt: &earlier}
		m.tasks.On("GetByID", ctx, "t1").Return(done, nil)

		_, err := svc.UpdateTask(ctx, aliceP, "t1", task.WithStatus(task.StatusPending))
		assertCode(t, err, service.CodeValidation)
	})

	t.Run("reopen keeps completed_at by default", func(t *testing.T) {
		svc, m := newTaskService(policy.DefaultRules())
		done := &task.Task{ID: "t1", Description: "x", Duration: 5, Status: task.StatusCompleted, CreatedBy: "alice", CompletedAt: &earlier}
		m.tasks.On("GetByID", ctx, "t1").Return(done, nil)
		m.tasks.On("Update", ctx, mock.Anything).Return(nil)

		got, err := svc.UpdateTask(ctx, aliceP, "t1", task.WithStatus(task.StatusPending))
		require.NoError(t, err)
		assert.Equal(t, task.StatusPending, got.Status)
		assert.Equal(t, earlier, *got.CompletedAt)
	})

	t.Run("missing task", func(t *testing.T) {
		svc, m := newTaskService(policy.DefaultRules())
		m.tasks.On("GetByID", ctx, "nope").Return(nil, repository.ErrNotFound)

		_, err := svc.UpdateTask(ctx, aliceP, "nope", task.WithNotes("x"))
		assertCode(t, err, service.CodeNotFound)
	})

	t.Run("anonymous refused before store", func(t *testing.T) {
		svc, m := newTaskService(policy.DefaultRules())

		_, err := svc.UpdateTask(ctx, anonP, "t1")
		assertCode(t, err, service.CodeAuthorization)
		m.tasks.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestTaskService_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("GetByID", ctx, "nope").Return(nil, repository.ErrNotFound)

	err := svc.DeleteTask(ctx, aliceP, "nope")
	assertCode(t, err, service.CodeNotFound)
	m.tasks.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestTaskService_ListTasksForProject(t *testing.T) {
	ctx := context.Background()
	all := []*task.Task{{ID: "t2", CreatedBy: "bob"}, {ID: "t1", CreatedBy: "alice"}}
	mine := []*task.Task{{ID: "t1", CreatedBy: "alice"}}

	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("ListByProject", ctx, "p1", "").Return(all, nil)
	m.tasks.On("ListByProject", ctx, "p1", "alice").Return(mine, nil)

	got, err := svc.ListTasksForProject(ctx, adminP, "p1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListTasksForProject(ctx, aliceP, "p1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.ListTasksForProject(ctx, anonP, "p1")
	assertCode(t, err, service.CodeAuthorization)

	_, err = svc.ListTasksForProject(ctx, aliceP, "")
	assertCode(t, err, service.CodeValidation)

	m.assertExpectations(t)
}

func TestTaskService_ReassignValidation(t *testing.T) {
	ctx := context.Background()
	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("GetByID", ctx, "t1").Return(&task.Task{ID: "t1", CreatedBy: "alice"}, nil)
	m.tasks.On("GetByID", ctx, "nope").Return(nil, repository.ErrNotFound)
	m.users.On("GetByID", ctx, "ghost").Return(nil, repository.ErrNotFound)
	m.users.On("GetByID", ctx, "gone").Return(&user.User{ID: "gone", Deleted: true}, nil)

	_, err := svc.ReassignTask(ctx, adminP, "t1", "")
	assertCode(t, err, service.CodeValidation)

	_, err = svc.ReassignTask(ctx, adminP, "nope", "bob")
	assertCode(t, err, service.CodeNotFound)

	_, err = svc.ReassignTask(ctx, adminP, "t1", "ghost")
	assertCode(t, err, service.CodeNotFound)

	_, err = svc.ReassignTask(ctx, adminP, "t1", "gone")
	assertCode(t, err, service.CodeNotFound)

	m.tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTaskService_ListAllTasksWithCreatorInfo(t *testing.T) {
	ctx := context.Background()
	tasks := []*task.Task{
		{ID: "t1", ProjectID: "p1", CreatedBy: "alice"},
		{ID: "t2", ProjectID: "p1", CreatedBy: "ghost", AssignedBy: "admin"},
	}

	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("ListAll", ctx).Return(tasks, nil)
	m.projects.On("GetByID", mock.Anything, "p1").Return(&project.Project{ID: "p1", Title: "Alpha"}, nil)
	m.users.On("GetByID", mock.Anything, "alice").Return(&user.User{ID: "alice", Email: "alice@example.com"}, nil)
	m.users.On("GetByID", mock.Anything, "admin").Return(&user.User{ID: "admin", Email: "admin@example.com"}, nil)
	m.users.On("GetByID", mock.Anything, "ghost").Return(nil, errors.New("lookup failed"))

	views, err := svc.ListAllTasksWithCreatorInfo(ctx, adminP)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Alpha", views[0].ProjectTitle)
	assert.Equal(t, "alice@example.com", views[0].CreatorEmail)
	assert.Equal(t, "Unknown User", views[1].CreatorEmail)
	assert.Equal(t, "admin@example.com", views[1].AssignerEmail)

	_, err = svc.ListAllTasksWithCreatorInfo(ctx, aliceP)
	assertCode(t, err, service.CodeAuthorization)
}

func TestTaskService_ListAllFailsOnPrimaryFetch(t *testing.T) {
	ctx := context.Background()
	svc, m := newTaskService(policy.DefaultRules())
	m.tasks.On("ListAll", ctx).Return(nil, repository.ErrUnavailable)

	_, err := svc.ListAllTasksWithCreatorInfo(ctx, adminP)
	assertCode(t, err, service.CodeUpstream)
}
