package policy

import (
	"fmt"

	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
)

// OnProjectDelete selects what happens to a project's tasks when the
// project is deleted.
type OnProjectDelete string

const (
	OrphanTasks  OnProjectDelete = "orphan"
	CascadeTasks OnProjectDelete = "cascade"
)

func (o OnProjectDelete) Valid() bool {
	return o == OrphanTasks || o == CascadeTasks
}

// Rules are the configurable parts of the policy.
type Rules struct {
	// AllowReopen lets a completed task move back to another status.
	AllowReopen bool
	// MemberProjects lets non-admin users create projects.
	MemberProjects bool
	OnProjectDelete OnProjectDelete
}

func DefaultRules() Rules {
	return Rules{
		AllowReopen:     true,
		MemberProjects:  false,
		OnProjectDelete: OrphanTasks,
	}
}

func (r Rules) Validate() error {
	if !r.OnProjectDelete.Valid() {
		return fmt.Errorf("on_project_delete must be %q or %q, got %q", OrphanTasks, CascadeTasks, r.OnProjectDelete)
	}
	return nil
}

func (r Rules) CanCreateProject(p user.Principal) bool {
	if !p.Authenticated() {
		return false
	}
	return p.IsAdmin() || r.MemberProjects
}

// CanTransition reports whether a task may move from one status to another.
// Same-status writes are always allowed.
func (r Rules) CanTransition(from, to task.Status) bool {
	if from == to {
		return true
	}
	if from == task.StatusCompleted && !r.AllowReopen {
		return false
	}
	return true
}

// CanRemoveAdmin reports whether one admin may be demoted or deleted given
// the current number of active admins.
func (r Rules) CanRemoveAdmin(activeAdmins int) bool {
	return activeAdmins > 1
}
