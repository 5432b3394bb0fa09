package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/redecorapp/redecor/internal/logging"
	mw "github.com/redecorapp/redecor/internal/middleware"
	"github.com/redecorapp/redecor/internal/paypal"
	"github.com/redecorapp/redecor/internal/repo"
	"github.com/redecorapp/redecor/internal/search"
	"github.com/redecorapp/redecor/internal/service"
	"github.com/redecorapp/redecor/internal/transport"
)

// WebHTTP serves the browser-facing endpoints: identity bootstrap, the
// email-keyed credit variants, generation and history.
type WebHTTP struct {
	Auth     *service.AuthService
	Credits  *service.CreditService
	Generate *service.GenerateService
	Repo     *repo.GormRepo
	Session  *mw.SessionAuth
	Search   *search.Client
	PayPal   *paypal.Client

	downloadClient *http.Client
}

// VerifyUser upserts the identity-provider profile and establishes the web
// session cookie used by every other web endpoint.
func (h *WebHTTP) VerifyUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "verify_user")

	var req transport.VerifyUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Auth.VerifyUser(ctx, req.User.FullName, req.User.Email, req.User.Image)
	if err != nil {
		l.Warn("verify_user_failed", "error", err)
		return httpError(err, "database error")
	}

	cookie, err := h.Session.IssueCookie(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to establish session")
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, echo.Map{"result": user})
}

func (h *WebHTTP) AddCredits(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.WebAddCreditsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Credits.GrantByEmail(ctx, req.Email, req.Credits)
	if err != nil {
		return httpError(err, "failed to add credits")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "credits": user.Credits})
}

func (h *WebHTTP) DecreaseCredits(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.WebDecreaseCreditsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Credits.DebitByEmail(ctx, req.Email, 1)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientCredits) {
			return echo.NewHTTPError(http.StatusBadRequest, "insufficient credits")
		}
		return httpError(err, "failed to decrease credits")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "credits": user.Credits})
}

func (h *WebHTTP) GeneratePhoto(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.GeneratePhotoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	email := req.UserEmail
	if email == "" {
		email = mw.SessionEmail(c)
	}

	img, err := h.Generate.Generate(ctx, service.GenerateRequest{
		ImageURL:      req.ImageURL,
		RoomType:      req.RoomType,
		Style:         req.Style,
		Customization: req.Customization,
		UserEmail:     email,
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

func (h *WebHTTP) Transformations(c echo.Context) error {
	ctx := c.Request().Context()

	email := c.QueryParam("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	rows, err := h.Repo.ListTransformations(ctx, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch transformations")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *WebHTTP) SearchTransformations(c echo.Context) error {
	ctx := c.Request().Context()

	email := c.QueryParam("email")
	q := c.QueryParam("q")
	if email == "" || q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and q are required")
	}
	if !h.Search.Indexable() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	total, docs, err := h.Search.SearchTransformations(ctx, email, q, 0, 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "transformations": docs})
}

func (h *WebHTTP) CaptureOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "capture_order")

	orderID := c.Param("orderId")
	data, err := h.PayPal.CaptureOrder(ctx, orderID)
	if err != nil {
		l.Error("capture_failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to capture order")
	}
	return c.JSONBlob(http.StatusOK, data)
}

// DownloadImage proxies a stored image back as an attachment so the browser
// offers a save dialog instead of navigating to the blob store.
func (h *WebHTTP) DownloadImage(c echo.Context) error {
	url := c.QueryParam("url")
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	client := h.downloadClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, url, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid url")
	}
	res, err := client.Do(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch image")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("image fetch status %d", res.StatusCode))
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="redecor.png"`)
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), res.Body)
	return err
}
