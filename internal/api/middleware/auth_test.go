package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/domain"
)

type stubAuthenticator struct {
	users map[string]*domain.User
	err   error
}

func (s *stubAuthenticator) Resolve(_ context.Context, token string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return u, nil
}

func newAuthenticator() *stubAuthenticator {
	return &stubAuthenticator{users: map[string]*domain.User{
		"good": {ID: "u1", Username: "alice", Role: domain.RoleClientAdmin, ClientID: "client_1"},
	}}
}

func runAuth(t *testing.T, authn *stubAuthenticator, header string) (*httptest.ResponseRecorder, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(authn)(func(c echo.Context) error {
		called = true
		actor := Actor(c)
		if actor == nil || actor.Username != "alice" || actor.ClientID != "client_1" {
			t.Fatalf("actor not set: %+v", actor)
		}
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	return rec, called, err
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rec, called, err := runAuth(t, newAuthenticator(), "Bearer good")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer ",
		"unknown token":  "Bearer bad",
	}
	for name, header := range cases {
		rec, called, err := runAuth(t, newAuthenticator(), header)
		if called {
			t.Fatalf("%s: next should not be called", name)
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", name, err)
		}
		if rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
			t.Fatalf("%s: expected WWW-Authenticate header", name)
		}
	}
}

func TestAuthMiddleware_StorageErrorPassesThrough(t *testing.T) {
	authn := newAuthenticator()
	authn.err = errors.New("mongo down")

	_, called, err := runAuth(t, authn, "Bearer good")
	if called {
		t.Fatalf("next should not be called")
	}
	var he *echo.HTTPError
	if err == nil || errors.As(err, &he) {
		t.Fatalf("expected raw storage error, got %v", err)
	}
}
