package user

import (
	"context"

	"github.com/google/uuid"
)

// Store persists accounts. Lookups return ErrNotFound for missing rows and
// writes return ErrEmailTaken when the email belongs to someone else.
// Emails are expected to be normalized by the caller.
type Store interface {
	// CreateUser fills in ID and timestamps on success.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// GetAllUsers pages by creation time, newest first.
	GetAllUsers(ctx context.Context, limit, offset int) ([]*User, error)
	// UpdateUser writes username and email. The password hash is untouched.
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}
