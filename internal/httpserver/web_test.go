package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/redecorapp/redecor/internal/middleware"
	"github.com/redecorapp/redecor/internal/models"
)

func TestVerifyUser_CreatesUserAndSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/verify-user", map[string]interface{}{
		"user": map[string]string{
			"fullName": "Ada Lovelace",
			"email":    "ada@example.com",
			"image":    "https://example.com/ada.png",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody(t, rec)["result"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", result["email"])
	assert.EqualValues(t, 3, result["credits"])

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == mw.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie must be set")
	assert.True(t, cookie.HttpOnly)

	// The cookie grants access to the session-gated endpoints.
	qr := env.do(t, http.MethodPost, "/auth/generate-qr-token", nil, withCookie(cookie))
	assert.Equal(t, http.StatusOK, qr.Code)
}

func TestVerifyUser_UpsertKeepsBalance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := map[string]interface{}{
		"user": map[string]string{"fullName": "Ada Lovelace", "email": "ada@example.com"},
	}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/verify-user", body).Code)

	user, err := env.repo.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	_, err = env.repo.AddCredits(context.Background(), user.ID, 7)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/verify-user", body)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody(t, rec)["result"].(map[string]interface{})
	assert.EqualValues(t, 10, result["credits"])

	var count int64
	require.NoError(t, env.repo.DB.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVerifyUser_MissingEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/verify-user", map[string]interface{}{
		"user": map[string]string{"fullName": "No Email"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebAddCredits(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.createUser(t, 1)
	cookie := env.sessionCookie(t, user)

	rec := env.do(t, http.MethodPost, "/add-credits", map[string]interface{}{
		"email":   user.Email,
		"credits": 5,
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 6, decodeBody(t, rec)["credits"])
}

func TestWebDecreaseCredits_Insufficient(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.createUser(t, 0)
	cookie := env.sessionCookie(t, user)

	rec := env.do(t, http.MethodPost, "/decrease-credits", map[string]interface{}{
		"email": user.Email,
	}, withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	after, err := env.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, after.Credits)
}

// Web generation falls back to the session identity when the body names no
// user.
func TestWebGeneratePhoto_SessionFallback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.createUser(t, 2)
	cookie := env.sessionCookie(t, user)

	rec := env.do(t, http.MethodPost, "/generate-photo", map[string]interface{}{
		"imageUrl": "https://example.com/room.png",
		"roomType": "Kitchen",
		"style":    "Rustic",
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	after, err := env.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Credits)

	rows, err := env.repo.ListTransformations(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTransformations_RequiresEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/transformations", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformations_ListsUserHistory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.createUser(t, 3)
	other := env.createUser(t, 3)

	for _, email := range []string{user.Email, user.Email, other.Email} {
		require.NoError(t, env.repo.CreateGeneratedImage(context.Background(), &models.AiGeneratedImage{
			OriginalImageURL:    "https://example.com/before.png",
			AiGeneratedImageURL: "https://cdn.example.com/after.png",
			RoomType:            "Bedroom",
			Style:               "Modern",
			UserEmail:           email,
		}))
	}

	rec := env.do(t, http.MethodGet, "/transformations?email="+user.Email, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.AiGeneratedImage
	require.NoError(t, jsonUnmarshal(rec, &rows))
	assert.Len(t, rows, 2)
}

func TestSearchTransformations_Unconfigured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/transformations/search?email=a@b.c&q=modern", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDownloadImage_ProxiesAsAttachment(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/download-image?url="+upstream.URL+"/img.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestDownloadImage_MissingURL(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/download-image", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Full cross-device flow: web identity, QR issuance, device redemption,
// bearer-authenticated usage, expiry, rotation.
func TestCrossDeviceFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	verify := env.do(t, http.MethodPost, "/verify-user", map[string]interface{}{
		"user": map[string]string{"fullName": "Flow User", "email": "flow@example.com"},
	})
	require.Equal(t, http.StatusOK, verify.Code)
	var cookie *http.Cookie
	for _, c := range verify.Result().Cookies() {
		if c.Name == mw.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	qr := env.do(t, http.MethodPost, "/auth/generate-qr-token", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, qr.Code)
	qrToken := decodeBody(t, qr)["token"].(string)

	// The device resolves the scanned token, then commits to a login.
	authn := env.do(t, http.MethodPost, "/mobile/authenticate", map[string]string{"token": qrToken})
	require.Equal(t, http.StatusOK, authn.Code)

	login := env.do(t, http.MethodPost, "/auth/device-login", map[string]string{
		"token":      qrToken,
		"deviceName": "iPhone 15",
	})
	require.Equal(t, http.StatusOK, login.Code)
	loginBody := decodeBody(t, login)
	userID := uint(loginBody["user"].(map[string]interface{})["id"].(float64))
	deviceID := loginBody["deviceLogin"].(map[string]interface{})["id"]

	// The consumed QR token now authorizes bearer requests.
	me := env.do(t, http.MethodGet, "/mobile/get-user-data?userId="+itoa(userID), nil, withBearer(qrToken))
	require.Equal(t, http.StatusOK, me.Code)

	// New users start with the default balance and can spend it.
	spend := env.do(t, http.MethodPost, "/mobile/update-credits", map[string]interface{}{"userId": userID}, withBearer(qrToken))
	require.Equal(t, http.StatusOK, spend.Code)
	assert.EqualValues(t, 2, decodeBody(t, spend)["credits"])

	// Past the login TTL the redeemed token expires and the device rotates.
	env.advance(16 * time.Minute)
	expired := env.do(t, http.MethodGet, "/mobile/get-user-data?userId="+itoa(userID), nil, withBearer(qrToken))
	require.Equal(t, mw.StatusTokenExpired, expired.Code)

	refresh := env.do(t, http.MethodPost, "/auth/refresh-token", map[string]interface{}{
		"deviceId": deviceID,
		"userId":   userID,
	})
	require.Equal(t, http.StatusOK, refresh.Code)
	fresh := decodeBody(t, refresh)["token"].(string)

	me = env.do(t, http.MethodGet, "/mobile/get-user-data?userId="+itoa(userID), nil, withBearer(fresh))
	assert.Equal(t, http.StatusOK, me.Code)
}
