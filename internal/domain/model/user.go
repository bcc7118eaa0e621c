package model

import (
	"strings"
	"time"

	"copytrade-subscription/internal/domain"

	"github.com/google/uuid"
)

// Role is the capability level carried by a session token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the directory entry the core reads: identity, role, enablement.
type User struct {
	ID        string
	Email     string
	Role      Role
	Enabled   bool
	CreatedAt time.Time
}

func NewUser(id, email string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, domain.ErrInvalidArgument
	}
	return &User{ID: id, Email: email, Role: role, Enabled: true, CreatedAt: time.Now()}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
