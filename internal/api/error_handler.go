package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/pkg/metrics"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusForbidden {
			metrics.AuthzDenialsTotal.WithLabelValues(c.Request().Method, c.Path()).Inc()
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Str("path", c.Path()).Msg("request rejected")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes. Wrapped errors carry
	// context the caller can act on, so their full text is returned.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrInvalidToken):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return http.StatusUnauthorized, domain.ErrInvalidToken.Error()

	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotSubscribed),
		errors.Is(err, domain.ErrNotAssigned):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrAlreadySubscribed),
		errors.Is(err, domain.ErrAlreadyAssigned),
		errors.Is(err, domain.ErrHasDependents),
		errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrDuplicateReport):
		return http.StatusConflict, err.Error()

	case errors.Is(err, domain.ErrTariffLimitExceeded),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
