package task

import (
	"time"
)

type Task struct {
	ID          string     `json:"id" db:"id" bson:"_id"`
	Description string     `json:"description" db:"description" bson:"description"`
	Duration    int        `json:"duration" db:"duration" bson:"duration"`
	Status      Status     `json:"status" db:"status" bson:"status"`
	ProjectID   string     `json:"project_id" db:"project_id" bson:"project_id"`
	CreatedBy   string     `json:"created_by" db:"created_by" bson:"created_by"`
	AssignedBy  string     `json:"assigned_by,omitempty" db:"assigned_by" bson:"assigned_by,omitempty"`
	Notes       string     `json:"notes,omitempty" db:"notes" bson:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at" bson:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at" bson:"completed_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at" bson:"updated_at,omitempty"`
	Orphaned    bool       `json:"orphaned,omitempty" db:"orphaned" bson:"orphaned"`
}

type Status string

const StatusPending Status = "pending"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Clone returns a deep copy so callers can patch a task without touching
// the stored instance.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.UpdatedAt != nil {
		at := *t.UpdatedAt
		c.UpdatedAt = &at
	}
	return &c
}
