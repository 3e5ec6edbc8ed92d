package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
	"github.com/gendalf/services-portal/internal/pkg/metrics"
)

// DefaultTokenTTL is the lifetime of an access token.
const DefaultTokenTTL = 30 * time.Minute

// AuthService implements the credential store and the token authenticator.
type AuthService struct {
	repo      ports.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// tokenClaims is the signed identity: subject is the username.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(repo ports.UserRepository, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
		log:       log,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateTenancy(in.Role, in.ClientID); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return nil, domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if in.Email != "" {
		if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
			return nil, domain.ErrDuplicateEmail
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		ClientID:     in.ClientID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("username", created.Username).Str("role", created.Role).Str("client_id", created.ClientID).Msg("user registered")
	return created, nil
}

// EnsureAdmin registers a portal administrator named username unless a user
// with that name already exists. It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	existing, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err == nil:
		if !existing.IsPortalAdmin() {
			s.log.Warn().Str("username", existing.Username).Str("role", existing.Role).Msg("bootstrap admin name taken by non-admin user")
		}
		return false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	if _, err := s.Register(ctx, ports.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     domain.RolePortalAdmin,
	}); err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	return true, nil
}

// Login verifies the credentials and issues a bearer token. Unknown users and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn the same bcrypt cost as a real comparison.
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, user, nil
}

// Resolve validates the token and maps its subject to the current user record.
// Every failure collapses into domain.ErrInvalidToken, except storage errors.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.jwtSecret)
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})
