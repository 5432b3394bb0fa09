package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/redecorapp/redecor/internal/logging"
	mw "github.com/redecorapp/redecor/internal/middleware"
	"github.com/redecorapp/redecor/internal/repo"
	"github.com/redecorapp/redecor/internal/service"
	"github.com/redecorapp/redecor/internal/transport"
)

// MobileHTTP serves the bearer-authenticated device API.
type MobileHTTP struct {
	Auth     *service.AuthService
	Credits  *service.CreditService
	Generate *service.GenerateService
}

// Authenticate is the post-scan bootstrap: it resolves a QR token to its
// owner before the device commits to a login.
func (h *MobileHTTP) Authenticate(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.AuthenticateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	row, err := h.Auth.Authenticate(ctx, req.Token)
	if err != nil {
		return httpError(err, "authentication failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"userId": row.UserID,
		"token":  req.Token,
	})
}

// requireOwnUser enforces that the user id named in the request is the one
// the bearer token resolved to.
func requireOwnUser(c echo.Context, userID uint) error {
	if userID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	if userID != mw.AuthUserID(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "token does not belong to this user")
	}
	return nil
}

func (h *MobileHTTP) userIDParam(c echo.Context) uint {
	if c.Request().Method == http.MethodGet {
		id, _ := strconv.ParseUint(c.QueryParam("userId"), 10, 32)
		return uint(id)
	}
	var req transport.UserIDRequest
	if err := c.Bind(&req); err != nil {
		return 0
	}
	return req.UserID.Uint()
}

func (h *MobileHTTP) GetUserData(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.userIDParam(c)
	if err := requireOwnUser(c, userID); err != nil {
		return err
	}

	user, err := h.Auth.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return httpError(err, "failed to fetch user profile")
	}

	rows, err := h.Auth.Repo.ListRecentTransformations(ctx, user.Email, 10)
	if err != nil {
		return httpError(err, "failed to fetch user profile")
	}

	transformations := make([]echo.Map, len(rows))
	for i, t := range rows {
		transformations[i] = echo.Map{
			"id":                  t.ID,
			"userId":              strconv.FormatUint(uint64(user.ID), 10),
			"originalImageUrl":    t.OriginalImageURL,
			"transformedImageUrl": t.AiGeneratedImageURL,
			"style":               t.Style,
			"createdAt":           t.CreatedAt,
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"image":   user.Image,
			"credits": user.Credits,
		},
		"transformations": transformations,
	})
}

func (h *MobileHTTP) VerifyCredits(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.userIDParam(c)
	if err := requireOwnUser(c, userID); err != nil {
		return err
	}

	credits, enough, err := h.Credits.Verify(ctx, userID)
	if err != nil {
		return httpError(err, "failed to verify credits")
	}

	if !enough {
		return c.JSON(http.StatusOK, echo.Map{
			"error":            "insufficient credits",
			"credits":          credits,
			"hasEnoughCredits": false,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"credits":          credits,
		"hasEnoughCredits": true,
	})
}

// UpdateCredits debits one credit. A zero balance is not an error at the
// transport level; the body carries success=false so the client can route to
// the purchase flow.
func (h *MobileHTTP) UpdateCredits(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.userIDParam(c)
	if err := requireOwnUser(c, userID); err != nil {
		return err
	}

	user, err := h.Credits.Debit(ctx, userID, 1)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientCredits) {
			return c.JSON(http.StatusOK, echo.Map{
				"error":   "insufficient credits",
				"credits": user.Credits,
				"success": false,
			})
		}
		return httpError(err, "failed to update credits")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"credits": user.Credits,
		"success": true,
	})
}

func (h *MobileHTTP) AddCredits(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "mobile_add_credits")

	var req transport.AddCreditsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := requireOwnUser(c, req.UserID.Uint()); err != nil {
		return err
	}
	if req.Credits <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "credits must be a positive integer")
	}

	user, err := h.Credits.Grant(ctx, req.UserID.Uint(), req.Credits, req.PaymentID)
	if err != nil {
		return httpError(err, "failed to add credits")
	}

	l.Info("credits_added", "user_id", user.ID, "credits", req.Credits, "payment_id", req.PaymentID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "credits added successfully",
		"user": echo.Map{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"credits": user.Credits,
		},
	})
}

func (h *MobileHTTP) GeneratePhoto(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.GeneratePhotoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := requireOwnUser(c, req.UserID.Uint()); err != nil {
		return err
	}

	img, err := h.Generate.Generate(ctx, service.GenerateRequest{
		ImageURL:      req.ImageURL,
		RoomType:      req.RoomType,
		Style:         req.Style,
		Customization: req.Customization,
		UserID:        req.UserID.Uint(),
	})
	if err != nil {
		return httpError(err, "AI generation failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "photo generated successfully",
		"id":      img.ID,
		"url":     img.AiGeneratedImageURL,
	})
}

func (h *MobileHTTP) ListDevices(c echo.Context) error {
	ctx := c.Request().Context()

	devices, err := h.Auth.ListDevices(ctx, mw.AuthUserID(c))
	if err != nil {
		return httpError(err, "failed to list devices")
	}
	return c.JSON(http.StatusOK, echo.Map{"devices": devices})
}

func (h *MobileHTTP) RevokeDevice(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.RevokeDeviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Auth.RevokeDevice(ctx, req.DeviceID.Uint(), mw.AuthUserID(c)); err != nil {
		return httpError(err, "failed to revoke device")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
