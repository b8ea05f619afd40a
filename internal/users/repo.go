package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/genart-works/genart-backend/internal/projects/domain"
)

// ErrNotFound signals that no user exists with the given username.
var ErrNotFound = errors.New("user not found")

// User is a stored account. Passhash is a bcrypt hash, never the password.
type User struct {
	Username string
	Passhash string
}

// UserRepository provides persistence for user accounts.
type UserRepository interface {
	Insert(ctx context.Context, u User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
}

const bcryptCost = 12

// HashPassword derives the stored bcrypt hash from a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, passhash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passhash), []byte(password)) == nil
}

// ValidateNewUser checks signup input bounds.
func ValidateNewUser(username, password string) error {
	if len(username) < 8 || len(username) > 50 {
		return &domain.ValidationError{Reason: "username must be 8-50 characters long"}
	}
	if len(password) < 8 || len(password) > 50 {
		return &domain.ValidationError{Reason: "password must be 8-50 characters long"}
	}
	return nil
}
