package accounts

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("accounts: user not found")
	ErrUsernameTaken = errors.New("accounts: username already taken")
)

// User is an account that owns sensors and receives alerts.
// PasswordHash is never serialized to clients.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	WhatsApp     string
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByWhatsApp(ctx context.Context, contact string) (*User, error)
	// UpdateProfile overwrites the whatsapp contact and/or password hash.
	// Empty values leave the stored field unchanged.
	UpdateProfile(ctx context.Context, id int64, whatsapp, passwordHash string) error
}
