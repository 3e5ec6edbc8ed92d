package service

import (
	"context"
	"time"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
	"github.com/gendalf/services-portal/internal/pkg/metrics"
)

// LimitChecker enforces tariff caps before subscription, assignment and user
// inserts. Callers hold the matching lock so the count cannot move between the
// check and the insert.
type LimitChecker struct {
	repos ports.Repositories
	now   func() time.Time
}

func NewLimitChecker(repos ports.Repositories) *LimitChecker {
	return &LimitChecker{repos: repos, now: utcNow}
}

// CheckServiceSubscriptionLimit fails when the client already has
// max_services active subscriptions.
func (l *LimitChecker) CheckServiceSubscriptionLimit(ctx context.Context, client *domain.Client) error {
	tariff, err := l.repos.Tariffs.FindByID(ctx, client.TariffID)
	if err != nil {
		return err
	}
	n, err := l.repos.ClientServices.CountActiveByClient(ctx, client.ID, l.now())
	if err != nil {
		return err
	}
	if n >= int64(tariff.MaxServices) {
		return exceeded("max_services", tariff.MaxServices, n)
	}
	return nil
}

// CheckUserAssignmentLimit fails when the subscription already has
// max_users_per_service assignments. An unset cap never fails.
func (l *LimitChecker) CheckUserAssignmentLimit(ctx context.Context, cs *domain.ClientService) error {
	client, err := l.repos.Clients.FindByID(ctx, cs.ClientID)
	if err != nil {
		return err
	}
	tariff, err := l.repos.Tariffs.FindByID(ctx, client.TariffID)
	if err != nil {
		return err
	}
	if tariff.MaxUsersPerService == nil {
		return nil
	}
	n, err := l.repos.UserServices.CountByClientService(ctx, cs.ID)
	if err != nil {
		return err
	}
	if n >= int64(*tariff.MaxUsersPerService) {
		return exceeded("max_users_per_service", *tariff.MaxUsersPerService, n)
	}
	return nil
}

// CheckClientUserLimit fails when the client already has max_users users.
func (l *LimitChecker) CheckClientUserLimit(ctx context.Context, client *domain.Client) error {
	tariff, err := l.repos.Tariffs.FindByID(ctx, client.TariffID)
	if err != nil {
		return err
	}
	n, err := l.repos.Users.CountByClient(ctx, client.ID)
	if err != nil {
		return err
	}
	if n >= int64(tariff.MaxUsers) {
		return exceeded("max_users", tariff.MaxUsers, n)
	}
	return nil
}

func exceeded(limit string, max int, current int64) error {
	metrics.LimitRejectionsTotal.WithLabelValues(limit).Inc()
	return &domain.LimitError{Limit: limit, Max: max, Current: current}
}
