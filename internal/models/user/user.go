package user

import (
	"strings"
	"time"
)

type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts "user" and "admin" in any case. Anything else is invalid.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return RoleNone, false
	}
}

type User struct {
	ID          string     `json:"id" db:"id" bson:"_id"`
	Email       string     `json:"email" db:"email" bson:"email"`
	Role        Role       `json:"role" db:"role" bson:"role"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at" bson:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at" bson:"last_login_at,omitempty"`
	Deleted     bool       `json:"deleted" db:"deleted" bson:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at" bson:"deleted_at,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Principal is the acting identity handed to every service call.
// The zero value is an anonymous caller with no rights.
type Principal struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Disabled bool   `json:"disabled,omitempty"`
}

func (p Principal) Authenticated() bool {
	return p.UID != "" && !p.Disabled
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}
