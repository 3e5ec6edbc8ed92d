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

// AccountService manages users on behalf of an authenticated actor. New
// credentials go through the AuthService so hashing and uniqueness live in
// one place.
type AccountService struct {
	repos  ports.Repositories
	auth   ports.AuthService
	policy *policy.Engine
	limits *LimitChecker
	locker ports.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewAccountService(repos ports.Repositories, auth ports.AuthService, engine *policy.Engine, limits *LimitChecker, locker ports.Locker, log zerolog.Logger) *AccountService {
	return &AccountService{repos: repos, auth: auth, policy: engine, limits: limits, locker: locker, log: log, now: utcNow}
}

func (s *AccountService) Create(ctx context.Context, actor *domain.User, in ports.CreateUserInput) (*domain.User, error) {
	if err := s.policy.Permits(actor, policy.ResourceUser, policy.ActionCreate); err != nil {
		return nil, err
	}
	if err := domain.ValidateTenancy(in.Role, in.ClientID); err != nil {
		return nil, err
	}
	if in.ClientID == "" {
		return s.auth.Register(ctx, in)
	}

	client, err := s.repos.Clients.FindByID(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	var created *domain.User
	err = withLock(ctx, s.locker, clientUsersKey(client.ID), func() error {
		if err := s.limits.CheckClientUserLimit(ctx, client); err != nil {
			return err
		}
		u, err := s.auth.Register(ctx, in)
		if err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List returns the users visible to actor: everyone for a portal admin, the
// actor's client for a client admin, the actor alone otherwise.
func (s *AccountService) List(ctx context.Context, actor *domain.User, page ports.Page) ([]*domain.User, error) {
	scope, err := s.policy.Scope(actor, policy.ResourceUser, policy.ActionList)
	if err != nil {
		return nil, err
	}
	return s.repos.Users.List(ctx, ports.UserFilter{
		ClientID: scope.ClientID,
		UserID:   scope.UserID,
		Page:     clampPage(page),
	})
}

func (s *AccountService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := s.policy.Permits(actor, policy.ResourceUser, policy.ActionRead); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ResourceUser, policy.ActionRead, userTarget(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// Update replaces email, role and client binding and optionally the password.
// Moving a user to another client drops their assignments, since those belong
// to the old client's subscriptions.
func (s *AccountService) Update(ctx context.Context, actor *domain.User, id string, in ports.UpdateUserInput) (*domain.User, error) {
	if err := s.policy.Permits(actor, policy.ResourceUser, policy.ActionUpdate); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *user

	if in.Role == "" {
		in.Role = user.Role
	}
	if in.Role == domain.RolePortalAdmin {
		in.ClientID = ""
	} else if in.ClientID == "" {
		in.ClientID = user.ClientID
	}
	if err := domain.ValidateTenancy(in.Role, in.ClientID); err != nil {
		return nil, err
	}

	if email := strings.TrimSpace(in.Email); email != "" && email != user.Email {
		existing, err := s.repos.Users.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != user.ID:
			return nil, domain.ErrDuplicateEmail
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, err
		}
		user.Email = email
	}
	if in.Password != "" {
		hash, err := s.auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.Role = in.Role
	user.ClientID = in.ClientID
	user.UpdatedAt = s.now()

	leaving := prev.ClientID != "" && prev.ClientID != user.ClientID
	var target *domain.Client
	if user.ClientID != "" && user.ClientID != prev.ClientID {
		if target, err = s.repos.Clients.FindByID(ctx, user.ClientID); err != nil {
			return nil, err
		}
	}

	err = withLock(ctx, s.locker, userKey(user.ID), func() error {
		if target == nil {
			return s.save(ctx, user, &prev, leaving)
		}
		return withLock(ctx, s.locker, clientUsersKey(target.ID), func() error {
			if err := s.limits.CheckClientUserLimit(ctx, target); err != nil {
				return err
			}
			return s.save(ctx, user, &prev, leaving)
		})
	})
	if err != nil {
		return nil, err
	}

	if target != nil {
		s.log.Info().Str("user_id", user.ID).Str("from_client", prev.ClientID).Str("to_client", target.ID).Msg("user moved to client")
	} else {
		s.log.Info().Str("user_id", user.ID).Msg("user updated")
	}
	return user, nil
}

// save persists user and, when drop is set, removes the user's
// assignments afterwards. If that cleanup fails the previous record is
// written back so the user keeps both its old client and its assignments.
func (s *AccountService) save(ctx context.Context, user, prev *domain.User, drop bool) error {
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return err
	}
	if !drop {
		return nil
	}
	if err := s.dropAssignments(ctx, user.ID); err != nil {
		if rerr := s.repos.Users.Update(ctx, prev); rerr != nil {
			s.log.Error().Err(rerr).Str("user_id", prev.ID).Msg("failed to restore user after assignment cleanup error")
		}
		return err
	}
	return nil
}

// Delete removes a user and their assignments. Usage records are kept.
func (s *AccountService) Delete(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := s.policy.Permits(actor, policy.ResourceUser, policy.ActionDelete); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == actor.ID {
		return nil, fmt.Errorf("%w: cannot delete yourself", domain.ErrInvalidInput)
	}
	// Holding userKey keeps Assign from attaching a new assignment between
	// the two deletes.
	err = withLock(ctx, s.locker, userKey(user.ID), func() error {
		if err := s.repos.Users.Delete(ctx, user.ID); err != nil {
			return err
		}
		return s.dropAssignments(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user deleted")
	return user, nil
}

func (s *AccountService) dropAssignments(ctx context.Context, userID string) error {
	n, err := s.repos.UserServices.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete assignments of user %s: %w", userID, err)
	}
	if n > 0 {
		s.log.Debug().Str("user_id", userID).Int64("assignments", n).Msg("assignments removed")
	}
	return nil
}

func userTarget(u *domain.User) policy.Target {
	return policy.Target{ClientID: u.ClientID, UserID: u.ID}
}
