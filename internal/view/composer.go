// Package view builds the denormalised task read model: each task joined
// with its project title and the emails of its creator and assigner.
package view

import (
	"context"
	"sync"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/task"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	UnknownUser    = "Unknown User"
	UnknownProject = "Unknown"

	defaultParallelism = 8
)

// Lookup resolves one id to a display string.
type Lookup func(ctx context.Context, id string) (string, error)

type TaskView struct {
	task.Task
	ProjectTitle  string `json:"project_title"`
	CreatorEmail  string `json:"creator_email"`
	AssignerEmail string `json:"assigner_email,omitempty"`
}

type Composer struct {
	projectTitle Lookup
	userEmail    Lookup
	parallelism  int
}

func NewComposer(projectTitle, userEmail Lookup) *Composer {
	return &Composer{
		projectTitle: projectTitle,
		userEmail:    userEmail,
		parallelism:  defaultParallelism,
	}
}

// Compose never fails. A lookup that errors leaves its placeholder in every
// row that needed it and nothing else.
func (c *Composer) Compose(ctx context.Context, tasks []*task.Task) []TaskView {
	projectIDs := make(map[string]struct{})
	userIDs := make(map[string]struct{})
	for _, t := range tasks {
		if t.ProjectID != "" {
			projectIDs[t.ProjectID] = struct{}{}
		}
		if t.CreatedBy != "" {
			userIDs[t.CreatedBy] = struct{}{}
		}
		if t.AssignedBy != "" {
			userIDs[t.AssignedBy] = struct{}{}
		}
	}

	titles := c.resolveAll(ctx, "project", projectIDs, c.projectTitle)
	emails := c.resolveAll(ctx, "user", userIDs, c.userEmail)

	res := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{
			Task:         *t.Clone(),
			ProjectTitle: UnknownProject,
			CreatorEmail: UnknownUser,
		}
		if title, ok := titles[t.ProjectID]; ok {
			v.ProjectTitle = title
		}
		if email, ok := emails[t.CreatedBy]; ok {
			v.CreatorEmail = email
		}
		if t.AssignedBy != "" {
			v.AssignerEmail = UnknownUser
			if email, ok := emails[t.AssignedBy]; ok {
				v.AssignerEmail = email
			}
		}
		res = append(res, v)
	}
	return res
}

// resolveAll looks every id up once, with bounded parallelism. Failed ids
// are absent from the result.
func (c *Composer) resolveAll(ctx context.Context, kind string, ids map[string]struct{}, lookup Lookup) map[string]string {
	out := make(map[string]string, len(ids))
	if lookup == nil || len(ids) == 0 {
		return out
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.parallelism)

	for id := range ids {
		g.Go(func() error {
			val, err := lookup(ctx, id)
			if err != nil {
				logger.Warn("View: Lookup failed, using placeholder",
					zap.String("kind", kind), zap.String("id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[id] = val
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
