// Package authpw verifies in-app actor credentials with bcrypt.
package authpw

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"procure/api/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the storage surface sign-in needs.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
}

type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignIn resolves a user by email and checks the password. The same error
// is returned for an unknown email and a wrong password.
func (s *Service) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
