package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/redecorapp/redecor/internal/logging"
	mw "github.com/redecorapp/redecor/internal/middleware"
	"github.com/redecorapp/redecor/internal/service"
	"github.com/redecorapp/redecor/internal/transport"
)

// AuthHTTP serves the QR handshake: issuance on the web side, redemption and
// rotation on the device side.
type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) GenerateQRToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "generate_qr_token")

	userID := mw.SessionUserID(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	issued, err := h.Svc.IssueToken(ctx, userID)
	if err != nil {
		l.Warn("issue_failed", "error", err)
		return httpError(err, "failed to generate QR token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":     issued.Token,
		"expiresAt": issued.ExpiresAt,
		"userId":    issued.UserID,
	})
}

func (h *AuthHTTP) DeviceLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "device_login")

	var req transport.DeviceLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Token == "" || req.DeviceName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token and device name are required")
	}

	res, err := h.Svc.RedeemToken(ctx, req.Token, req.DeviceName, req.DeviceLocation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			l.Warn("device_login_failed", "reason", "invalid token")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		case errors.Is(err, service.ErrTokenExpired):
			l.Warn("device_login_failed", "reason", "token expired")
			return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
		default:
			return httpError(err, "failed to process device login")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"user":        res.User,
		"deviceLogin": res.Device,
	})
}

func (h *AuthHTTP) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "refresh_token")

	var req transport.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.DeviceID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "device id is required")
	}

	issued, err := h.Svc.RefreshToken(ctx, req.DeviceID.Uint(), req.UserID.Uint())
	if err != nil {
		l.Warn("refresh_failed", "error", err)
		return httpError(err, "failed to refresh token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":     issued.Token,
		"expiresAt": issued.ExpiresAt,
	})
}
