package project

import (
	"time"
)

type Project struct {
	ID          string    `json:"id" db:"id" bson:"_id"`
	Title       string    `json:"title" db:"title" bson:"title"`
	Description string    `json:"description" db:"description" bson:"description"`
	Status      Status    `json:"status" db:"status" bson:"status"`
	OwnerID     string    `json:"owner_id" db:"owner_id" bson:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

type Status string

const StatusActive Status = "active"
const StatusPending Status = "pending"
const StatusCompleted Status = "completed"

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusCompleted:
		return true
	}
	return false
}

// Option is a partial update applied to a loaded project.
type Option func(*Project)

func WithTitle(title string) Option {
	return func(p *Project) {
		p.Title = title
	}
}

func WithDescription(description string) Option {
	return func(p *Project) {
		p.Description = description
	}
}

func WithStatus(status Status) Option {
	return func(p *Project) {
		p.Status = status
	}
}
