package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// SubscriptionService connects catalog services to clients.
type SubscriptionService struct {
	repos  ports.Repositories
	policy *policy.Engine
	limits *LimitChecker
	locker ports.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewSubscriptionService(repos ports.Repositories, engine *policy.Engine, limits *LimitChecker, locker ports.Locker, log zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{repos: repos, policy: engine, limits: limits, locker: locker, log: log, now: utcNow}
}

// Connect subscribes a client to a service, enforcing one active subscription
// per pair and the tariff's max_services.
func (s *SubscriptionService) Connect(ctx context.Context, actor *domain.User, in ports.ConnectInput) (*domain.ClientService, error) {
	if err := s.policy.Permits(actor, policy.ResourceClientService, policy.ActionCreate); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceClientService, policy.ActionCreate, policy.Target{ClientID: client.ID}); err != nil {
		return nil, err
	}
	svc, err := s.repos.Services.FindByID(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", domain.ErrInvalidInput)
	}

	var created *domain.ClientService
	err = withLock(ctx, s.locker, clientSubscriptionsKey(client.ID), func() error {
		if _, err := s.repos.ClientServices.FindActive(ctx, client.ID, svc.ID, now); err == nil {
			return domain.ErrAlreadySubscribed
		} else if !errors.Is(err, domain.ErrClientServiceNotFound) {
			return err
		}
		if err := s.limits.CheckServiceSubscriptionLimit(ctx, client); err != nil {
			return err
		}
		cs, err := s.repos.ClientServices.Create(ctx, &domain.ClientService{
			ClientID:    client.ID,
			ServiceID:   svc.ID,
			ConnectedAt: now,
			ExpiresAt:   in.ExpiresAt,
		})
		if err != nil {
			return err
		}
		created = cs
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("client_service_id", created.ID).
		Str("client_id", client.ID).
		Str("service_id", svc.ID).
		Str("actor", actor.Username).
		Msg("service connected")
	return created, nil
}

func (s *SubscriptionService) ListByClient(ctx context.Context, actor *domain.User, clientID string) ([]*domain.ClientService, error) {
	if err := s.policy.Permits(actor, policy.ResourceClientService, policy.ActionList); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceClientService, policy.ActionList, policy.Target{ClientID: client.ID}); err != nil {
		return nil, err
	}
	return s.repos.ClientServices.ListByClient(ctx, client.ID)
}

// Disconnect removes a subscription together with every user assignment on it.
// Usage records keep their copied client and service IDs.
func (s *SubscriptionService) Disconnect(ctx context.Context, actor *domain.User, id string) (*domain.ClientService, error) {
	if err := s.policy.Permits(actor, policy.ResourceClientService, policy.ActionDelete); err != nil {
		return nil, err
	}
	cs, err := s.repos.ClientServices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceClientService, policy.ActionDelete, policy.Target{ClientID: cs.ClientID}); err != nil {
		return nil, err
	}

	err = withLock(ctx, s.locker, assignmentsKey(cs.ID), func() error {
		removed, err := s.repos.UserServices.DeleteByClientService(ctx, cs.ID)
		if err != nil {
			return fmt.Errorf("disconnect: delete assignments: %w", err)
		}
		if removed > 0 {
			s.log.Debug().Str("client_service_id", cs.ID).Int64("assignments", removed).Msg("assignments removed")
		}
		return s.repos.ClientServices.Delete(ctx, cs.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("client_service_id", cs.ID).Str("client_id", cs.ClientID).Msg("service disconnected")
	return cs, nil
}
