package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/api/middleware"
	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

var (
	portalAdmin = &domain.User{ID: "u-pa", Username: "root", Role: domain.RolePortalAdmin}
	clientAdmin = &domain.User{ID: "u-ca", Username: "boss", Role: domain.RoleClientAdmin, ClientID: "c-1"}
)

// newContext builds an echo context for a JSON request. actor may be nil to
// simulate an unauthenticated call.
func newContext(method, target string, body io.Reader, actor *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		c.Set(middleware.ActorKey, actor)
	}
	return c, rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

type stubAuthService struct {
	loginFn func(ctx context.Context, username, password string) (string, *domain.User, error)
}

func (s *stubAuthService) Register(context.Context, ports.RegisterInput) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) HashPassword(string) (string, error) { return "", nil }

type stubTenantService struct {
	createFn func(ctx context.Context, actor *domain.User, in ports.ClientInput) (*domain.Client, error)
	getFn    func(ctx context.Context, actor *domain.User, id string) (*domain.Client, error)
	listFn   func(ctx context.Context, actor *domain.User, page ports.Page) ([]*domain.Client, error)
}

func (s *stubTenantService) Create(ctx context.Context, actor *domain.User, in ports.ClientInput) (*domain.Client, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubTenantService) List(ctx context.Context, actor *domain.User, page ports.Page) ([]*domain.Client, error) {
	return s.listFn(ctx, actor, page)
}

func (s *stubTenantService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Client, error) {
	return s.getFn(ctx, actor, id)
}

func (s *stubTenantService) Mine(ctx context.Context, actor *domain.User) (*domain.Client, error) {
	return s.getFn(ctx, actor, actor.ClientID)
}

func (s *stubTenantService) Update(context.Context, *domain.User, string, ports.ClientInput) (*domain.Client, error) {
	return nil, errors.New("not implemented")
}

func (s *stubTenantService) Delete(ctx context.Context, actor *domain.User, id string) (*domain.Client, error) {
	return s.getFn(ctx, actor, id)
}

type stubUsageService struct {
	recordFn    func(ctx context.Context, actor *domain.User, in ports.RecordUsageInput) (*domain.Usage, error)
	byServiceFn func(ctx context.Context, actor *domain.User, serviceID string) ([]*domain.Usage, error)
}

func (s *stubUsageService) Record(ctx context.Context, actor *domain.User, in ports.RecordUsageInput) (*domain.Usage, error) {
	return s.recordFn(ctx, actor, in)
}

func (s *stubUsageService) ByClient(context.Context, *domain.User, string) ([]*domain.Usage, error) {
	return nil, nil
}

func (s *stubUsageService) ByUser(context.Context, *domain.User, string) ([]*domain.Usage, error) {
	return nil, nil
}

func (s *stubUsageService) ByService(ctx context.Context, actor *domain.User, serviceID string) ([]*domain.Usage, error) {
	return s.byServiceFn(ctx, actor, serviceID)
}

type stubQueue struct {
	got    []ports.UsageReport
	accept int
	err    error
}

func (q *stubQueue) EnqueueBatch(_ context.Context, reports []ports.UsageReport) (int, error) {
	q.got = append(q.got, reports...)
	if q.err != nil {
		return q.accept, q.err
	}
	return len(reports), nil
}
