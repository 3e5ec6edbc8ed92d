package ports

import (
	"context"

	"github.com/gendalf/services-portal/internal/core/domain"
)

// ClientRepository defines persistence operations for tenants.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) (*domain.Client, error)
	FindByID(ctx context.Context, id string) (*domain.Client, error)
	FindByName(ctx context.Context, name string) (*domain.Client, error)
	List(ctx context.Context, page Page) ([]*domain.Client, error)
	CountByTariff(ctx context.Context, tariffID string) (int64, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id string) error
}

// ServiceRepository defines persistence operations for the service catalog.
type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) (*domain.Service, error)
	FindByID(ctx context.Context, id string) (*domain.Service, error)
	FindByName(ctx context.Context, name string) (*domain.Service, error)
	List(ctx context.Context, page Page) ([]*domain.Service, error)
	Update(ctx context.Context, svc *domain.Service) error
	Delete(ctx context.Context, id string) error
}

// TariffRepository defines persistence operations for tariff plans.
type TariffRepository interface {
	Create(ctx context.Context, tariff *domain.Tariff) (*domain.Tariff, error)
	FindByID(ctx context.Context, id string) (*domain.Tariff, error)
	FindByName(ctx context.Context, name string) (*domain.Tariff, error)
	List(ctx context.Context, page Page) ([]*domain.Tariff, error)
	Update(ctx context.Context, tariff *domain.Tariff) error
	Delete(ctx context.Context, id string) error
}
