package ports

import (
	"context"

	"github.com/gendalf/services-portal/internal/core/domain"
)

// RegisterInput carries the credential-store fields for a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	ClientID string
}

// AuthService is the credential store: registration, login and password hashing.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	HashPassword(password string) (string, error)
}

// TokenAuthenticator resolves a bearer token to the current user record.
type TokenAuthenticator interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}
