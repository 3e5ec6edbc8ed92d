package ports

import (
	"context"

	"github.com/gendalf/services-portal/internal/core/domain"
)

// Page bounds a list query. Limit <= 0 means the repository default.
type Page struct {
	Skip  int
	Limit int
}

// UserFilter narrows a user listing. Empty fields do not filter; the service
// layer fills them from the policy scope.
type UserFilter struct {
	ClientID string
	UserID   string
	Page
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, error)
	CountByClient(ctx context.Context, clientID string) (int64, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}
