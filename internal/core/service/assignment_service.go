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

// AssignmentService grants users access to their client's subscriptions.
type AssignmentService struct {
	repos  ports.Repositories
	policy *policy.Engine
	limits *LimitChecker
	locker ports.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewAssignmentService(repos ports.Repositories, engine *policy.Engine, limits *LimitChecker, locker ports.Locker, log zerolog.Logger) *AssignmentService {
	return &AssignmentService{repos: repos, policy: engine, limits: limits, locker: locker, log: log, now: utcNow}
}

func (s *AssignmentService) Assign(ctx context.Context, actor *domain.User, userID, clientServiceID string) (*domain.UserService, error) {
	if err := s.policy.Permits(actor, policy.ResourceUserService, policy.ActionAssign); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUserService, policy.ActionAssign, userTarget(user)); err != nil {
		return nil, err
	}
	cs, err := s.repos.ClientServices.FindByID(ctx, clientServiceID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUserService, policy.ActionAssign, policy.Target{ClientID: cs.ClientID}); err != nil {
		return nil, err
	}
	if user.ClientID != cs.ClientID {
		return nil, fmt.Errorf("%w: user and subscription belong to different clients", domain.ErrInvalidInput)
	}

	var created *domain.UserService
	err = withLock(ctx, s.locker, userKey(user.ID), func() error {
		return withLock(ctx, s.locker, assignmentsKey(cs.ID), func() error {
			// The user may have been deleted or moved, and the subscription
			// disconnected, while the locks were pending.
			current, err := s.repos.Users.FindByID(ctx, user.ID)
			if err != nil {
				return err
			}
			sub, err := s.repos.ClientServices.FindByID(ctx, cs.ID)
			if err != nil {
				return err
			}
			if current.ClientID != sub.ClientID {
				return fmt.Errorf("%w: user and subscription belong to different clients", domain.ErrInvalidInput)
			}
			exists, err := s.repos.UserServices.Exists(ctx, current.ID, sub.ID)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrAlreadyAssigned
			}
			if err := s.limits.CheckUserAssignmentLimit(ctx, sub); err != nil {
				return err
			}
			us, err := s.repos.UserServices.Create(ctx, &domain.UserService{
				UserID:          current.ID,
				ClientServiceID: sub.ID,
				AssignedAt:      s.now(),
			})
			if err != nil {
				return err
			}
			created = us
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_service_id", created.ID).
		Str("user_id", user.ID).
		Str("client_service_id", cs.ID).
		Msg("service assigned")
	return created, nil
}

func (s *AssignmentService) ListByUser(ctx context.Context, actor *domain.User, userID string) ([]*domain.UserService, error) {
	if err := s.policy.Permits(actor, policy.ResourceUserService, policy.ActionList); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUserService, policy.ActionList, userTarget(user)); err != nil {
		return nil, err
	}
	return s.repos.UserServices.ListByUser(ctx, user.ID)
}

func (s *AssignmentService) Revoke(ctx context.Context, actor *domain.User, id string) (*domain.UserService, error) {
	if err := s.policy.Permits(actor, policy.ResourceUserService, policy.ActionRevoke); err != nil {
		return nil, err
	}
	us, err := s.repos.UserServices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	target, err := s.assignmentTarget(ctx, us)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUserService, policy.ActionRevoke, target); err != nil {
		return nil, err
	}
	err = withLock(ctx, s.locker, assignmentsKey(us.ClientServiceID), func() error {
		return s.repos.UserServices.Delete(ctx, us.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_service_id", us.ID).Str("user_id", us.UserID).Msg("service revoked")
	return us, nil
}

// assignmentTarget resolves the owning client of an assignment through its
// user, falling back to the subscription when the user record is gone.
func (s *AssignmentService) assignmentTarget(ctx context.Context, us *domain.UserService) (policy.Target, error) {
	user, err := s.repos.Users.FindByID(ctx, us.UserID)
	if err == nil {
		return userTarget(user), nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return policy.Target{}, err
	}
	cs, err := s.repos.ClientServices.FindByID(ctx, us.ClientServiceID)
	if err != nil {
		return policy.Target{}, err
	}
	return policy.Target{ClientID: cs.ClientID, UserID: us.UserID}, nil
}
