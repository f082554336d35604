// Package policy holds the access decisions for users, projects and tasks.
// Every function is pure: callers load whatever records are needed and pass
// them in, and a false result is always safe.
package policy

import (
	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
)

// CanAccessProject reports whether p may edit or delete the project.
func CanAccessProject(p user.Principal, proj *project.Project) bool {
	if !p.Authenticated() || proj == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return proj.OwnerID != "" && proj.OwnerID == p.UID
}

// CanCreateTaskFor reports whether p may create a task owned by targetUID.
// Admins may create tasks on behalf of any user.
func CanCreateTaskFor(p user.Principal, targetUID string) bool {
	if !p.Authenticated() || targetUID == "" {
		return false
	}
	return targetUID == p.UID || p.IsAdmin()
}

// CanMutateTask reports whether p may update or delete t. A task with no
// recorded creator is admin-only.
func CanMutateTask(p user.Principal, t *task.Task) bool {
	if !p.Authenticated() || t == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return t.CreatedBy != "" && t.CreatedBy == p.UID
}

// CanViewTask uses the same rule as CanMutateTask: tasks are visible to
// their owner and to admins.
func CanViewTask(p user.Principal, t *task.Task) bool {
	return CanMutateTask(p, t)
}

func CanManageUsers(p user.Principal) bool {
	return p.IsAdmin()
}

// BootstrapRole is the role handed to a new registrant. The caller is
// responsible for deciding isFirstRegistrant atomically with the insert.
func BootstrapRole(isFirstRegistrant bool) user.Role {
	if isFirstRegistrant {
		return user.RoleAdmin
	}
	return user.RoleUser
}
