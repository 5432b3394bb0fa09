package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/redecorapp/redecor/internal/middleware"
)

type Deps struct {
	Auth   *AuthHTTP
	Mobile *MobileHTTP
	Web    *WebHTTP

	Session *mw.SessionAuth
	Bearer  *mw.BearerAuth
	Limiter *mw.RateLimiter
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/verify-user", d.Web.VerifyUser)
	e.GET("/transformations", d.Web.Transformations)
	e.GET("/transformations/search", d.Web.SearchTransformations)
	e.POST("/orders/:orderId/capture", d.Web.CaptureOrder)
	e.GET("/download-image", d.Web.DownloadImage)

	web := e.Group("", d.Session.RequireSession)
	web.POST("/auth/generate-qr-token", d.Auth.GenerateQRToken)
	web.POST("/add-credits", d.Web.AddCredits)
	web.POST("/decrease-credits", d.Web.DecreaseCredits)
	web.POST("/generate-photo", d.Web.GeneratePhoto)

	// The token in the request body is the credential here, so these routes
	// carry no session and are rate limited per IP instead.
	handshake := e.Group("", d.Limiter.Middleware)
	handshake.POST("/auth/device-login", d.Auth.DeviceLogin)
	handshake.POST("/auth/refresh-token", d.Auth.RefreshToken)
	handshake.POST("/mobile/authenticate", d.Mobile.Authenticate)

	mobile := e.Group("/mobile", d.Bearer.RequireBearer)
	mobile.GET("/get-user-data", d.Mobile.GetUserData)
	mobile.POST("/get-user-data", d.Mobile.GetUserData)
	mobile.POST("/verify-credits", d.Mobile.VerifyCredits)
	mobile.POST("/update-credits", d.Mobile.UpdateCredits)
	mobile.POST("/add-credits", d.Mobile.AddCredits)
	mobile.POST("/generate-photo", d.Mobile.GeneratePhoto)
	mobile.GET("/devices", d.Mobile.ListDevices)
	mobile.POST("/devices/revoke", d.Mobile.RevokeDevice)
}
