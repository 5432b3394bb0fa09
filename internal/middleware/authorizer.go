package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/redecorapp/redecor/internal/service"
)

// StatusTokenExpired is the non-standard code mobile clients already switch
// on for the "re-authenticate" path. Kept literally for compatibility.
const StatusTokenExpired = 603

// BearerAuth is the single authorizer every protected mobile endpoint routes
// through: one strictness contract, no per-endpoint variants.
type BearerAuth struct {
	Auth *service.AuthService
}

// RequireBearer extracts and validates the bearer token, then exposes the
// resolved user id to the handler. Handlers that receive a userId in the
// request body must still match it against AuthUserID.
func (m *BearerAuth) RequireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization header")
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "no token provided")
		}

		user, err := m.Auth.ValidateBearer(c.Request().Context(), token, 0)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				return echo.NewHTTPError(StatusTokenExpired, "token has expired")
			case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			case errors.Is(err, service.ErrNotFound):
				return echo.NewHTTPError(http.StatusNotFound, "user not found")
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "error validating token")
			}
		}

		c.Set("auth_user_id", user.ID)
		return next(c)
	}
}

// AuthUserID is the user the bearer token resolved to.
func AuthUserID(c echo.Context) uint {
	if id, ok := c.Get("auth_user_id").(uint); ok {
		return id
	}
	return 0
}
