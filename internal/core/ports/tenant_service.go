package ports

import (
	"context"
	"time"

	"github.com/gendalf/services-portal/internal/core/domain"
)

// ClientInput carries the writable fields of a client.
type ClientInput struct {
	Name     string
	TariffID string
}

// TenantService manages clients.
type TenantService interface {
	Create(ctx context.Context, actor *domain.User, in ClientInput) (*domain.Client, error)
	List(ctx context.Context, actor *domain.User, page Page) ([]*domain.Client, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.Client, error)
	Mine(ctx context.Context, actor *domain.User) (*domain.Client, error)
	Update(ctx context.Context, actor *domain.User, id string, in ClientInput) (*domain.Client, error)
	Delete(ctx context.Context, actor *domain.User, id string) (*domain.Client, error)
}

// ServiceInput carries the writable fields of a catalog service.
type ServiceInput struct {
	Name        string
	Description string
}

// CatalogService manages the global service catalog.
type CatalogService interface {
	Create(ctx context.Context, actor *domain.User, in ServiceInput) (*domain.Service, error)
	List(ctx context.Context, actor *domain.User, page Page) ([]*domain.Service, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.Service, error)
	Update(ctx context.Context, actor *domain.User, id string, in ServiceInput) (*domain.Service, error)
	Delete(ctx context.Context, actor *domain.User, id string) (*domain.Service, error)
}

// TariffInput carries the writable fields of a tariff.
type TariffInput struct {
	Name               string
	MaxUsers           int
	MaxServices        int
	PeriodDays         int
	Price              float64
	MaxUsersPerService *int
}

// TariffService manages tariff plans.
type TariffService interface {
	Create(ctx context.Context, actor *domain.User, in TariffInput) (*domain.Tariff, error)
	List(ctx context.Context, actor *domain.User, page Page) ([]*domain.Tariff, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.Tariff, error)
	Update(ctx context.Context, actor *domain.User, id string, in TariffInput) (*domain.Tariff, error)
	Delete(ctx context.Context, actor *domain.User, id string) (*domain.Tariff, error)
}

// ConnectInput requests a subscription of a client to a service.
type ConnectInput struct {
	ClientID  string
	ServiceID string
	ExpiresAt *time.Time
}

// SubscriptionService connects and disconnects services to clients.
type SubscriptionService interface {
	Connect(ctx context.Context, actor *domain.User, in ConnectInput) (*domain.ClientService, error)
	ListByClient(ctx context.Context, actor *domain.User, clientID string) ([]*domain.ClientService, error)
	Disconnect(ctx context.Context, actor *domain.User, id string) (*domain.ClientService, error)
}
