package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// CatalogService manages the global service catalog.
type CatalogService struct {
	repos  ports.Repositories
	policy *policy.Engine
	log    zerolog.Logger
}

func NewCatalogService(repos ports.Repositories, engine *policy.Engine, log zerolog.Logger) *CatalogService {
	return &CatalogService{repos: repos, policy: engine, log: log}
}

func (s *CatalogService) Create(ctx context.Context, actor *domain.User, in ports.ServiceInput) (*domain.Service, error) {
	if err := s.policy.Permits(actor, policy.ResourceService, policy.ActionCreate); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	created, err := s.repos.Services.Create(ctx, &domain.Service{Name: in.Name, Description: in.Description})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("service_id", created.ID).Str("name", created.Name).Msg("service created")
	return created, nil
}

func (s *CatalogService) List(ctx context.Context, actor *domain.User, page ports.Page) ([]*domain.Service, error) {
	if err := s.policy.Permits(actor, policy.ResourceService, policy.ActionList); err != nil {
		return nil, err
	}
	return s.repos.Services.List(ctx, clampPage(page))
}

func (s *CatalogService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Service, error) {
	if err := s.policy.Permits(actor, policy.ResourceService, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.repos.Services.FindByID(ctx, id)
}

func (s *CatalogService) Update(ctx context.Context, actor *domain.User, id string, in ports.ServiceInput) (*domain.Service, error) {
	if err := s.policy.Permits(actor, policy.ResourceService, policy.ActionUpdate); err != nil {
		return nil, err
	}
	svc, err := s.repos.Services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != svc.Name {
		if err := s.ensureNameFree(ctx, name, svc.ID); err != nil {
			return nil, err
		}
		svc.Name = name
	}
	if in.Description != "" {
		svc.Description = in.Description
	}
	if err := s.repos.Services.Update(ctx, svc); err != nil {
		return nil, err
	}
	s.log.Info().Str("service_id", svc.ID).Msg("service updated")
	return svc, nil
}

// Delete removes a catalog entry no client is subscribed to.
func (s *CatalogService) Delete(ctx context.Context, actor *domain.User, id string) (*domain.Service, error) {
	if err := s.policy.Permits(actor, policy.ResourceService, policy.ActionDelete); err != nil {
		return nil, err
	}
	svc, err := s.repos.Services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.repos.ClientServices.CountByService(ctx, svc.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: service has %d subscriptions", domain.ErrHasDependents, n)
	}
	if err := s.repos.Services.Delete(ctx, svc.ID); err != nil {
		return nil, err
	}
	s.log.Info().Str("service_id", svc.ID).Msg("service deleted")
	return svc, nil
}

func (s *CatalogService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repos.Services.FindByName(ctx, name)
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		return domain.ErrDuplicateName
	}
	if errors.Is(err, domain.ErrServiceNotFound) {
		return nil
	}
	return err
}

// TariffService manages tariff plans.
type TariffService struct {
	repos  ports.Repositories
	policy *policy.Engine
	log    zerolog.Logger
}

func NewTariffService(repos ports.Repositories, engine *policy.Engine, log zerolog.Logger) *TariffService {
	return &TariffService{repos: repos, policy: engine, log: log}
}

func (s *TariffService) Create(ctx context.Context, actor *domain.User, in ports.TariffInput) (*domain.Tariff, error) {
	if err := s.policy.Permits(actor, policy.ResourceTariff, policy.ActionCreate); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateTariff(in); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	created, err := s.repos.Tariffs.Create(ctx, &domain.Tariff{
		Name:               in.Name,
		MaxUsers:           in.MaxUsers,
		MaxServices:        in.MaxServices,
		PeriodDays:         in.PeriodDays,
		Price:              in.Price,
		MaxUsersPerService: in.MaxUsersPerService,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tariff_id", created.ID).Str("name", created.Name).Msg("tariff created")
	return created, nil
}

func (s *TariffService) List(ctx context.Context, actor *domain.User, page ports.Page) ([]*domain.Tariff, error) {
	if err := s.policy.Permits(actor, policy.ResourceTariff, policy.ActionList); err != nil {
		return nil, err
	}
	return s.repos.Tariffs.List(ctx, clampPage(page))
}

func (s *TariffService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Tariff, error) {
	if err := s.policy.Permits(actor, policy.ResourceTariff, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.repos.Tariffs.FindByID(ctx, id)
}

// Update replaces every limit of the tariff. Lowering a limit does not touch
// existing subscriptions; it only blocks new ones.
func (s *TariffService) Update(ctx context.Context, actor *domain.User, id string, in ports.TariffInput) (*domain.Tariff, error) {
	if err := s.policy.Permits(actor, policy.ResourceTariff, policy.ActionUpdate); err != nil {
		return nil, err
	}
	tariff, err := s.repos.Tariffs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = tariff.Name
	}
	if err := validateTariff(in); err != nil {
		return nil, err
	}
	if in.Name != tariff.Name {
		if err := s.ensureNameFree(ctx, in.Name, tariff.ID); err != nil {
			return nil, err
		}
	}

	tariff.Name = in.Name
	tariff.MaxUsers = in.MaxUsers
	tariff.MaxServices = in.MaxServices
	tariff.PeriodDays = in.PeriodDays
	tariff.Price = in.Price
	tariff.MaxUsersPerService = in.MaxUsersPerService

	if err := s.repos.Tariffs.Update(ctx, tariff); err != nil {
		return nil, err
	}
	s.log.Info().Str("tariff_id", tariff.ID).Msg("tariff updated")
	return tariff, nil
}

// Delete removes a tariff no client is on.
func (s *TariffService) Delete(ctx context.Context, actor *domain.User, id string) (*domain.Tariff, error) {
	if err := s.policy.Permits(actor, policy.ResourceTariff, policy.ActionDelete); err != nil {
		return nil, err
	}
	tariff, err := s.repos.Tariffs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.repos.Clients.CountByTariff(ctx, tariff.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: tariff is used by %d clients", domain.ErrHasDependents, n)
	}
	if err := s.repos.Tariffs.Delete(ctx, tariff.ID); err != nil {
		return nil, err
	}
	s.log.Info().Str("tariff_id", tariff.ID).Msg("tariff deleted")
	return tariff, nil
}

func (s *TariffService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repos.Tariffs.FindByName(ctx, name)
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		return domain.ErrDuplicateName
	}
	if errors.Is(err, domain.ErrTariffNotFound) {
		return nil
	}
	return err
}

func validateTariff(in ports.TariffInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	case in.MaxUsers < 0, in.MaxServices < 0:
		return fmt.Errorf("%w: limits must not be negative", domain.ErrInvalidInput)
	case in.PeriodDays <= 0:
		return fmt.Errorf("%w: period_days must be positive", domain.ErrInvalidInput)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	case in.MaxUsersPerService != nil && *in.MaxUsersPerService < 0:
		return fmt.Errorf("%w: max_users_per_service must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
