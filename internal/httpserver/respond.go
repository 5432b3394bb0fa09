package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/redecorapp/redecor/internal/service"
)

// httpError maps the service error taxonomy to transport codes. Mobile
// bearer-expiry (603) is handled by the authorizer middleware, not here.
func httpError(err error, fallback string) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, service.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientCredits):
		return echo.NewHTTPError(http.StatusBadRequest, "insufficient credits")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, fallback)
	}
}
