package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// TenantService manages clients.
type TenantService struct {
	repos  ports.Repositories
	policy *policy.Engine
	log    zerolog.Logger
	now    func() time.Time
}

func NewTenantService(repos ports.Repositories, engine *policy.Engine, log zerolog.Logger) *TenantService {
	return &TenantService{repos: repos, policy: engine, log: log, now: utcNow}
}

func (s *TenantService) Create(ctx context.Context, actor *domain.User, in ports.ClientInput) (*domain.Client, error) {
	if err := s.policy.Permits(actor, policy.ResourceClient, policy.ActionCreate); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.TariffID == "" {
		return nil, fmt.Errorf("%w: name and tariff_id are required", domain.ErrInvalidInput)
	}
	if _, err := s.repos.Tariffs.FindByID(ctx, in.TariffID); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	created, err := s.repos.Clients.Create(ctx, &domain.Client{
		Name:      in.Name,
		TariffID:  in.TariffID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("client_id", created.ID).Str("name", created.Name).Str("tariff_id", created.TariffID).Msg("client created")
	return created, nil
}

func (s *TenantService) List(ctx context.Context, actor *domain.User, page ports.Page) ([]*domain.Client, error) {
	if err := s.policy.Permits(actor, policy.ResourceClient, policy.ActionList); err != nil {
		return nil, err
	}
	return s.repos.Clients.List(ctx, clampPage(page))
}

func (s *TenantService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Client, error) {
	if err := s.policy.Permits(actor, policy.ResourceClient, policy.ActionRead); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceClient, policy.ActionRead, policy.Target{ClientID: client.ID}); err != nil {
		return nil, err
	}
	return client, nil
}

// Mine returns the client the actor belongs to.
func (s *TenantService) Mine(ctx context.Context, actor *domain.User) (*domain.Client, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if actor.ClientID == "" {
		return nil, fmt.Errorf("%w: user is not bound to any client", domain.ErrInvalidInput)
	}
	return s.Get(ctx, actor, actor.ClientID)
}

func (s *TenantService) Update(ctx context.Context, actor *domain.User, id string, in ports.ClientInput) (*domain.Client, error) {
	if err := s.policy.Permits(actor, policy.ResourceClient, policy.ActionUpdate); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" && name != client.Name {
		if err := s.ensureNameFree(ctx, name, client.ID); err != nil {
			return nil, err
		}
		client.Name = name
	}
	if in.TariffID != "" && in.TariffID != client.TariffID {
		if _, err := s.repos.Tariffs.FindByID(ctx, in.TariffID); err != nil {
			return nil, err
		}
		client.TariffID = in.TariffID
	}

	if err := s.repos.Clients.Update(ctx, client); err != nil {
		return nil, err
	}
	s.log.Info().Str("client_id", client.ID).Msg("client updated")
	return client, nil
}

// Delete removes a client that no longer owns users or subscriptions.
func (s *TenantService) Delete(ctx context.Context, actor *domain.User, id string) (*domain.Client, error) {
	if err := s.policy.Permits(actor, policy.ResourceClient, policy.ActionDelete); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	users, err := s.repos.Users.CountByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	subs, err := s.repos.ClientServices.CountByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if users > 0 || subs > 0 {
		return nil, fmt.Errorf("%w: client has %d users and %d subscriptions", domain.ErrHasDependents, users, subs)
	}

	if err := s.repos.Clients.Delete(ctx, client.ID); err != nil {
		return nil, err
	}
	s.log.Info().Str("client_id", client.ID).Msg("client deleted")
	return client, nil
}

func (s *TenantService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repos.Clients.FindByName(ctx, name)
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		return domain.ErrDuplicateName
	}
	if errors.Is(err, domain.ErrClientNotFound) {
		return nil
	}
	return err
}
