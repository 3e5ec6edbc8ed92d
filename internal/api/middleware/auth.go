package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// ActorKey is the echo context key holding the authenticated *domain.User.
const ActorKey = "actor"

// Auth resolves the bearer token to the current user record and stores it
// under ActorKey.
func Auth(authn ports.TokenAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "not authenticated")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return unauthorized(c, "invalid authorization header")
			}

			actor, err := authn.Resolve(c.Request().Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					return unauthorized(c, domain.ErrInvalidToken.Error())
				}
				return err
			}

			c.Set(ActorKey, actor)
			return next(c)
		}
	}
}

// Actor returns the user stored by Auth, or nil.
func Actor(c echo.Context) *domain.User {
	actor, _ := c.Get(ActorKey).(*domain.User)
	return actor
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
