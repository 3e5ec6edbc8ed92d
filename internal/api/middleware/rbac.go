package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/policy"
)

// Require rejects, before the handler runs, any actor whose role can never
// perform act on res. Target-level checks stay in the use cases.
func Require(engine *policy.Engine, res policy.Resource, act policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := Actor(c)
			if actor == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if err := engine.Permits(actor, res, act); err != nil {
				return err
			}
			return next(c)
		}
	}
}
