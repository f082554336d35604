package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"teamTracker/internal/auth/local"
	"teamTracker/internal/identity"
	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	"teamTracker/internal/repository/inmemory"
	"teamTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// tracker wires the services the way the app does, on in-memory storage
// and the local identity provider.
type tracker struct {
	users    *service.UserService
	projects *service.ProjectService
	tasks    *service.TaskService
	taskRepo *inmemory.TaskStorage
}

func newTracker(t *testing.T, rules policy.Rules) *tracker {
	t.Helper()

	userRepo := inmemory.NewUserStorage()
	projectRepo := inmemory.NewProjectStorage()
	taskRepo := inmemory.NewTaskStorage()

	provider, err := local.New(local.Options{
		Secret:            []byte("properties-test-secret"),
		BcryptCost:        bcrypt.MinCost,
		AttemptsPerMinute: 100,
	})
	require.NoError(t, err)

	resolver := identity.NewResolver(userRepo, nil)
	resolver.Watch(provider)

	return &tracker{
		users:    service.NewUserService(userRepo, provider, resolver, rules),
		projects: service.NewProjectService(projectRepo, taskRepo, rules),
		tasks:    service.NewTaskService(taskRepo, projectRepo, userRepo, rules),
		taskRepo: taskRepo,
	}
}

func (tr *tracker) register(t *testing.T, email string) user.Principal {
	t.Helper()
	sess, err := tr.users.Register(context.Background(), email, "password1")
	require.NoError(t, err)
	return sess.Principal
}

func TestProperty_BootstrapAdmin(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())

	first := tr.register(t, "first@example.com")
	second := tr.register(t, "second@example.com")

	assert.Equal(t, user.RoleAdmin, first.Role)
	assert.Equal(t, user.RoleUser, second.Role)
}

func TestProperty_ConcurrentRegistrationYieldsOneAdmin(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()

	const n = 20
	roles := make(chan user.Role, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := tr.users.Register(ctx, fmt.Sprintf("user%d@example.com", i), "password1")
			if assert.NoError(t, err) {
				roles <- sess.Principal.Role
			}
		}(i)
	}
	wg.Wait()
	close(roles)

	admins := 0
	for r := range roles {
		if r == user.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestProperty_InvalidTaskIsNotPersisted(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()
	admin := tr.register(t, "admin@example.com")
	proj, err := tr.projects.CreateProject(ctx, admin, service.NewProject{Title: "P1"})
	require.NoError(t, err)

	inputs := []service.NewTask{
		{Description: "", Duration: 30, ProjectID: proj.ID},
		{Description: "   ", Duration: 30, ProjectID: proj.ID},
		{Description: "zero", Duration: 0, ProjectID: proj.ID},
		{Description: "negative", Duration: -5, ProjectID: proj.ID},
	}
	for _, in := range inputs {
		_, err := tr.tasks.CreateTask(ctx, admin, in)
		assertCode(t, err, service.CodeValidation)
	}

	all, err := tr.taskRepo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProperty_OwnershipGuardsMutation(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()
	admin := tr.register(t, "admin@example.com")
	alice := tr.register(t, "alice@example.com")
	bob := tr.register(t, "bob@example.com")

	proj, err := tr.projects.CreateProject(ctx, admin, service.NewProject{Title: "P1"})
	require.NoError(t, err)
	tk, err := tr.tasks.CreateTask(ctx, alice, service.NewTask{Description: "alice's", Duration: 15, ProjectID: proj.ID})
	require.NoError(t, err)

	_, err = tr.tasks.UpdateTask(ctx, bob, tk.ID, task.WithNotes("mine now"))
	assertCode(t, err, service.CodeAuthorization)
	assertCode(t, tr.tasks.DeleteTask(ctx, bob, tk.ID), service.CodeAuthorization)

	_, err = tr.tasks.UpdateTask(ctx, admin, tk.ID, task.WithNotes("checked"))
	require.NoError(t, err)
	_, err = tr.tasks.ReassignTask(ctx, admin, tk.ID, bob.UID)
	require.NoError(t, err)
	require.NoError(t, tr.tasks.DeleteTask(ctx, admin, tk.ID))
}

func TestProperty_CompletedAtStampedOnce(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()
	admin := tr.register(t, "admin@example.com")
	proj, err := tr.projects.CreateProject(ctx, admin, service.NewProject{Title: "P1"})
	require.NoError(t, err)
	tk, err := tr.tasks.CreateTask(ctx, admin, service.NewTask{Description: "ship", Duration: 60, ProjectID: proj.ID})
	require.NoError(t, err)
	require.Nil(t, tk.CompletedAt)

	first, err := tr.tasks.UpdateTask(ctx, admin, tk.ID, task.WithStatus(task.StatusCompleted))
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)
	stamped := *first.CompletedAt

	time.Sleep(5 * time.Millisecond)
	second, err := tr.tasks.UpdateTask(ctx, admin, tk.ID, task.WithStatus(task.StatusCompleted))
	require.NoError(t, err)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, stamped.Equal(*second.CompletedAt))
}

func TestProperty_AdminListIsSuperset(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()
	admin := tr.register(t, "admin@example.com")
	alice := tr.register(t, "alice@example.com")
	bob := tr.register(t, "bob@example.com")

	proj, err := tr.projects.CreateProject(ctx, admin, service.NewProject{Title: "P1"})
	require.NoError(t, err)
	for _, p := range []user.Principal{admin, alice, alice, bob} {
		_, err := tr.tasks.CreateTask(ctx, p, service.NewTask{Description: "work", Duration: 10, ProjectID: proj.ID})
		require.NoError(t, err)
	}

	all, err := tr.tasks.ListTasksForProject(ctx, admin, proj.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	for _, p := range []user.Principal{alice, bob} {
		own, err := tr.tasks.ListTasksForProject(ctx, p, proj.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(own), len(all))
		for _, tk := range own {
			assert.Equal(t, p.UID, tk.CreatedBy)
		}
	}
}

func TestProperty_ProjectRoundTrip(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()
	admin := tr.register(t, "admin@example.com")

	in := service.NewProject{Title: "Roadmap", Description: "Q3 planning", Status: project.StatusPending}
	created, err := tr.projects.CreateProject(ctx, admin, in)
	require.NoError(t, err)

	got, err := tr.projects.GetProject(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.Status, got.Status)
	assert.Equal(t, admin.UID, got.OwnerID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestProperty_DeleteMissingTask(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	admin := tr.register(t, "admin@example.com")

	err := tr.tasks.DeleteTask(context.Background(), admin, "does-not-exist")
	assertCode(t, err, service.CodeNotFound)
}

func TestScenario_ReassignMakesTaskVisible(t *testing.T) {
	tr := newTracker(t, policy.DefaultRules())
	ctx := context.Background()

	u1 := tr.register(t, "u1@example.com")
	u2 := tr.register(t, "u2@example.com")
	require.Equal(t, user.RoleAdmin, u1.Role)
	require.Equal(t, user.RoleUser, u2.Role)

	p1, err := tr.projects.CreateProject(ctx, u1, service.NewProject{Title: "P1"})
	require.NoError(t, err)
	tk, err := tr.tasks.CreateTask(ctx, u1, service.NewTask{Description: "Write report", Duration: 90, ProjectID: p1.ID})
	require.NoError(t, err)

	mine, err := tr.tasks.ListTasksForProject(ctx, u1, p1.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, task.StatusPending, mine[0].Status)

	theirs, err := tr.tasks.ListTasksForProject(ctx, u2, p1.ID)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = tr.tasks.ReassignTask(ctx, u1, tk.ID, u2.UID)
	require.NoError(t, err)

	theirs, err = tr.tasks.ListTasksForProject(ctx, u2, p1.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, u1.UID, theirs[0].AssignedBy)
	assert.Equal(t, u2.UID, theirs[0].CreatedBy)

	views, err := tr.tasks.ListAllTasksWithCreatorInfo(ctx, u1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "P1", views[0].ProjectTitle)
	assert.Equal(t, "u2@example.com", views[0].CreatorEmail)
	assert.Equal(t, "u1@example.com", views[0].AssignerEmail)
}

func TestProperty_ProjectDeletePolicies(t *testing.T) {
	ctx := context.Background()

	for _, mode := range []policy.OnProjectDelete{policy.OrphanTasks, policy.CascadeTasks} {
		t.Run(string(mode), func(t *testing.T) {
			rules := policy.DefaultRules()
			rules.OnProjectDelete = mode
			tr := newTracker(t, rules)
			admin := tr.register(t, "admin@example.com")

			proj, err := tr.projects.CreateProject(ctx, admin, service.NewProject{Title: "Doomed"})
			require.NoError(t, err)
			tk, err := tr.tasks.CreateTask(ctx, admin, service.NewTask{Description: "x", Duration: 5, ProjectID: proj.ID})
			require.NoError(t, err)

			require.NoError(t, tr.projects.DeleteProject(ctx, admin, proj.ID))

			got, err := tr.tasks.GetTask(ctx, admin, tk.ID)
			if mode == policy.CascadeTasks {
				assertCode(t, err, service.CodeNotFound)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Orphaned)
		})
	}
}
