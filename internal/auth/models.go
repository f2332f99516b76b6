package auth

import (
	"context"
	"time"

	"github.com/sweetshop/api/internal/apperr"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the authenticated caller every core operation receives.
// Role checks happen in the services themselves, never in ambient
// middleware state.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// RequireAdmin is the capability check used by the catalog and order
// services on privileged operations.
func RequireAdmin(id Identity) error {
	if !id.IsAdmin() {
		return apperr.New(apperr.CodeForbidden, "admin only")
	}
	return nil
}

// Store persists user accounts. Create fails CONFLICT on a duplicate
// email.
type Store interface {
	Create(ctx context.Context, u User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}
