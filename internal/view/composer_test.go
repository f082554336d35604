package view_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"teamTracker/internal/models/task"
	"teamTracker/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(values map[string]string, calls *int32) view.Lookup {
	return func(ctx context.Context, id string) (string, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		v, ok := values[id]
		if !ok {
			return "", errors.New("not found")
		}
		return v, nil
	}
}

func TestComposer_Compose(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tasks := []*task.Task{
		{ID: "t1", ProjectID: "p1", CreatedBy: "u1", CreatedAt: now},
		{ID: "t2", ProjectID: "p1", CreatedBy: "u2", AssignedBy: "u1", CreatedAt: now},
		{ID: "t3", ProjectID: "gone", CreatedBy: "ghost", AssignedBy: "ghost", CreatedAt: now},
		{ID: "t4", ProjectID: "p2", CreatedAt: now},
	}

	var projectCalls, userCalls int32
	c := view.NewComposer(
		mapLookup(map[string]string{"p1": "Alpha", "p2": "Beta"}, &projectCalls),
		mapLookup(map[string]string{"u1": "one@example.com", "u2": "two@example.com"}, &userCalls),
	)

	views := c.Compose(ctx, tasks)
	require.Len(t, views, 4)

	assert.Equal(t, "t1", views[0].ID)
	assert.Equal(t, "Alpha", views[0].ProjectTitle)
	assert.Equal(t, "one@example.com", views[0].CreatorEmail)
	assert.Empty(t, views[0].AssignerEmail)

	assert.Equal(t, "two@example.com", views[1].CreatorEmail)
	assert.Equal(t, "one@example.com", views[1].AssignerEmail)

	// a failed lookup degrades only that row's fields
	assert.Equal(t, view.UnknownProject, views[2].ProjectTitle)
	assert.Equal(t, view.UnknownUser, views[2].CreatorEmail)
	assert.Equal(t, view.UnknownUser, views[2].AssignerEmail)

	assert.Equal(t, "Beta", views[3].ProjectTitle)
	assert.Equal(t, view.UnknownUser, views[3].CreatorEmail)

	// each distinct id is looked up once
	assert.EqualValues(t, 3, projectCalls)
	assert.EqualValues(t, 3, userCalls)
}

func TestComposer_DoesNotMutateInput(t *testing.T) {
	done := time.Now()
	in := &task.Task{ID: "t1", ProjectID: "p1", CreatedBy: "u1", CompletedAt: &done}

	c := view.NewComposer(mapLookup(map[string]string{"p1": "Alpha"}, nil), mapLookup(nil, nil))
	views := c.Compose(context.Background(), []*task.Task{in})

	require.Len(t, views, 1)
	views[0].Description = "changed"
	*views[0].CompletedAt = done.Add(time.Hour)

	assert.Empty(t, in.Description)
	assert.True(t, in.CompletedAt.Equal(done))
}

func TestComposer_Empty(t *testing.T) {
	c := view.NewComposer(nil, nil)
	views := c.Compose(context.Background(), nil)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}
