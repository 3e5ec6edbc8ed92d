package ports

import (
	"context"
	"time"

	"github.com/gendalf/services-portal/internal/core/domain"
)

// CreateUserInput carries the fields for an administratively created user.
type CreateUserInput = RegisterInput

// UpdateUserInput replaces the mutable fields of a user. An empty Password
// keeps the current hash.
type UpdateUserInput struct {
	Email    string
	Role     string
	ClientID string
	Password string
}

// AccountService manages users on behalf of an authenticated actor.
type AccountService interface {
	Create(ctx context.Context, actor *domain.User, in CreateUserInput) (*domain.User, error)
	List(ctx context.Context, actor *domain.User, page Page) ([]*domain.User, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error)
	Update(ctx context.Context, actor *domain.User, id string, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, actor *domain.User, id string) (*domain.User, error)
}

// AssignmentService grants and revokes user access to subscriptions.
type AssignmentService interface {
	Assign(ctx context.Context, actor *domain.User, userID, clientServiceID string) (*domain.UserService, error)
	ListByUser(ctx context.Context, actor *domain.User, userID string) ([]*domain.UserService, error)
	Revoke(ctx context.Context, actor *domain.User, id string) (*domain.UserService, error)
}

// RecordUsageInput is the DTO for a single usage report.
type RecordUsageInput struct {
	ClientServiceID string
	UserID          string
	UsageAmount     int64
	UsageDate       time.Time // zero means now
	ReportID        string    // optional idempotency key
}

// UsageReport pairs a usage report with the actor that submitted it, so the
// asynchronous path authorizes exactly like the synchronous one.
type UsageReport struct {
	Actor *domain.User
	Input RecordUsageInput
}

// UsageService records and queries usage.
type UsageService interface {
	Record(ctx context.Context, actor *domain.User, in RecordUsageInput) (*domain.Usage, error)
	ByClient(ctx context.Context, actor *domain.User, clientID string) ([]*domain.Usage, error)
	ByUser(ctx context.Context, actor *domain.User, userID string) ([]*domain.Usage, error)
	ByService(ctx context.Context, actor *domain.User, serviceID string) ([]*domain.Usage, error)
}
