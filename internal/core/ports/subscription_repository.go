package ports

import (
	"context"
	"time"

	"github.com/gendalf/services-portal/internal/core/domain"
)

// ClientServiceRepository persists client subscriptions.
type ClientServiceRepository interface {
	Create(ctx context.Context, cs *domain.ClientService) (*domain.ClientService, error)
	FindByID(ctx context.Context, id string) (*domain.ClientService, error)
	// FindActive returns the subscription of clientID to serviceID that is
	// active at now, or domain.ErrClientServiceNotFound.
	FindActive(ctx context.Context, clientID, serviceID string, now time.Time) (*domain.ClientService, error)
	// ExistsFor reports whether clientID ever subscribed to serviceID.
	ExistsFor(ctx context.Context, clientID, serviceID string) (bool, error)
	ListByClient(ctx context.Context, clientID string) ([]*domain.ClientService, error)
	CountActiveByClient(ctx context.Context, clientID string, now time.Time) (int64, error)
	CountByClient(ctx context.Context, clientID string) (int64, error)
	CountByService(ctx context.Context, serviceID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// UserServiceRepository persists user assignments to subscriptions.
type UserServiceRepository interface {
	Create(ctx context.Context, us *domain.UserService) (*domain.UserService, error)
	FindByID(ctx context.Context, id string) (*domain.UserService, error)
	Exists(ctx context.Context, userID, clientServiceID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.UserService, error)
	CountByClientService(ctx context.Context, clientServiceID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByClientService(ctx context.Context, clientServiceID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// UsageFilter selects usage records. Empty fields do not filter.
type UsageFilter struct {
	ClientID  string
	UserID    string
	ServiceID string
}

// UsageRepository persists the append-only usage ledger.
type UsageRepository interface {
	Create(ctx context.Context, usage *domain.Usage) (*domain.Usage, error)
	List(ctx context.Context, filter UsageFilter) ([]*domain.Usage, error)
}
