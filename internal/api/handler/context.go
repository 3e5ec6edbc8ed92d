package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/api/middleware"
	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// ctxActor returns the authenticated user injected by the Auth middleware.
// A missing actor means the route was registered without Auth.
func ctxActor(c echo.Context) (*domain.User, error) {
	actor := middleware.Actor(c)
	if actor == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return actor, nil
}

// bindAndValidate decodes the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// pageParams reads ?skip=&limit= into a ports.Page.
func pageParams(c echo.Context) (ports.Page, error) {
	var p ports.Page
	err := echo.QueryParamsBinder(c).
		Int("skip", &p.Skip).
		Int("limit", &p.Limit).
		BindError()
	if err != nil {
		return ports.Page{}, echo.NewHTTPError(http.StatusBadRequest, "skip and limit must be integers")
	}
	if p.Skip < 0 || p.Limit < 0 {
		return ports.Page{}, echo.NewHTTPError(http.StatusBadRequest, "skip and limit must not be negative")
	}
	return p, nil
}
