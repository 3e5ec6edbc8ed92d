package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/ports"
	"github.com/gendalf/services-portal/internal/pkg/metrics"
)

// UsageService records usage against assigned subscriptions and serves the
// per-client, per-user and per-service reports.
type UsageService struct {
	repos  ports.Repositories
	policy *policy.Engine
	dedup  ports.UsageDedup
	log    zerolog.Logger
	now    func() time.Time
}

// NewUsageService returns a UsageService. dedup may be nil, in which case
// report IDs are stored but not checked.
func NewUsageService(repos ports.Repositories, engine *policy.Engine, dedup ports.UsageDedup, log zerolog.Logger) *UsageService {
	return &UsageService{repos: repos, policy: engine, dedup: dedup, log: log, now: utcNow}
}

// Record appends one usage record. The user must belong to the
// subscription's client and hold an assignment on it.
func (s *UsageService) Record(ctx context.Context, actor *domain.User, in ports.RecordUsageInput) (*domain.Usage, error) {
	if err := s.policy.Permits(actor, policy.ResourceUsage, policy.ActionRecord); err != nil {
		return nil, err
	}
	if in.UsageAmount < 0 {
		return nil, fmt.Errorf("%w: usage_amount must not be negative", domain.ErrInvalidInput)
	}

	cs, err := s.repos.ClientServices.FindByID(ctx, in.ClientServiceID)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUsage, policy.ActionRecord, policy.Target{ClientID: cs.ClientID, UserID: user.ID}); err != nil {
		return nil, err
	}
	if user.ClientID != cs.ClientID {
		return nil, fmt.Errorf("%w: user does not belong to the subscription's client", domain.ErrInvalidInput)
	}
	assigned, err := s.repos.UserServices.Exists(ctx, user.ID, cs.ID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, domain.ErrNotAssigned
	}

	if in.ReportID != "" && s.dedup != nil {
		dup, err := s.dedup.IsDuplicate(ctx, cs.ID, in.ReportID)
		if err != nil {
			s.log.Warn().Err(err).Str("report_id", in.ReportID).Msg("dedup check failed, recording anyway")
		} else if dup {
			metrics.UsageDedupTotal.WithLabelValues("duplicate").Inc()
			return nil, domain.ErrDuplicateReport
		}
	}

	date := in.UsageDate
	if date.IsZero() {
		date = s.now()
	}
	created, err := s.repos.Usage.Create(ctx, &domain.Usage{
		ClientServiceID: cs.ID,
		UserID:          user.ID,
		ClientID:        cs.ClientID,
		ServiceID:       cs.ServiceID,
		UsageDate:       date.UTC(),
		UsageAmount:     in.UsageAmount,
		ReportID:        in.ReportID,
	})
	if err != nil {
		return nil, err
	}

	if in.ReportID != "" && s.dedup != nil {
		metrics.UsageDedupTotal.WithLabelValues("new").Inc()
		if err := s.dedup.Mark(ctx, cs.ID, in.ReportID); err != nil {
			s.log.Warn().Err(err).Str("report_id", in.ReportID).Msg("failed to set dedup key")
		}
	}
	metrics.UsageRecordedTotal.Inc()

	s.log.Debug().
		Str("usage_id", created.ID).
		Str("client_service_id", cs.ID).
		Str("user_id", user.ID).
		Int64("amount", created.UsageAmount).
		Msg("usage recorded")
	return created, nil
}

func (s *UsageService) ByClient(ctx context.Context, actor *domain.User, clientID string) ([]*domain.Usage, error) {
	if err := s.policy.Permits(actor, policy.ResourceUsageByClient, policy.ActionRead); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUsageByClient, policy.ActionRead, policy.Target{ClientID: client.ID}); err != nil {
		return nil, err
	}
	return s.repos.Usage.List(ctx, ports.UsageFilter{ClientID: client.ID})
}

func (s *UsageService) ByUser(ctx context.Context, actor *domain.User, userID string) ([]*domain.Usage, error) {
	if err := s.policy.Permits(actor, policy.ResourceUsageByUser, policy.ActionRead); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUsageByUser, policy.ActionRead, userTarget(user)); err != nil {
		return nil, err
	}
	return s.repos.Usage.List(ctx, ports.UsageFilter{UserID: user.ID})
}

// ByService returns usage of a catalog service. A client admin sees only
// their client's records and must have subscribed to the service at some
// point, expired subscriptions included.
func (s *UsageService) ByService(ctx context.Context, actor *domain.User, serviceID string) ([]*domain.Usage, error) {
	if err := s.policy.Permits(actor, policy.ResourceUsageByService, policy.ActionRead); err != nil {
		return nil, err
	}
	svc, err := s.repos.Services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	scope, err := s.policy.Scope(actor, policy.ResourceUsageByService, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	if scope.ClientID != "" {
		ok, err := s.repos.ClientServices.ExistsFor(ctx, scope.ClientID, svc.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrNotSubscribed
		}
	}
	return s.repos.Usage.List(ctx, ports.UsageFilter{ServiceID: svc.ID, ClientID: scope.ClientID})
}
