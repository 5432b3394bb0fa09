package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/redecorapp/redecor/internal/models"
)

const SessionCookieName = "session"

type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// SessionAuth guards the web endpoints with an HS256 cookie session issued at
// identity bootstrap (/verify-user).
type SessionAuth struct {
	Secret []byte
	TTL    time.Duration
}

func (m *SessionAuth) IssueCookie(user *models.User) (*http.Cookie, error) {
	exp := time.Now().Add(m.TTL)
	claims := SessionClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (m *SessionAuth) parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// RequireSession rejects requests without a valid session cookie and exposes
// the resolved identity to the handler.
func (m *SessionAuth) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
		}

		claims, err := m.parse(cookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
		}

		id, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session subject")
		}

		c.Set("session_user_id", uint(id))
		c.Set("session_email", claims.Email)
		return next(c)
	}
}

// SessionUserID returns the identity set by RequireSession.
func SessionUserID(c echo.Context) uint {
	if id, ok := c.Get("session_user_id").(uint); ok {
		return id
	}
	return 0
}

func SessionEmail(c echo.Context) string {
	if email, ok := c.Get("session_email").(string); ok {
		return email
	}
	return ""
}
