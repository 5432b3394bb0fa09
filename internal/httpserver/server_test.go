package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	mw "github.com/redecorapp/redecor/internal/middleware"
	"github.com/redecorapp/redecor/internal/models"
	"github.com/redecorapp/redecor/internal/repo"
	"github.com/redecorapp/redecor/internal/service"
)

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Generate(context.Context, string, string) ([]byte, error) {
	if g.err != nil {
		return nil, g.err
	}
	return []byte("png-bytes"), nil
}

type stubStore struct{}

func (stubStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

// testEnv wires the full router against an in-memory database with a
// controllable clock.
type testEnv struct {
	e         *echo.Echo
	repo      *repo.GormRepo
	auth      *service.AuthService
	session   *mw.SessionAuth
	generator *stubGenerator

	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AuthToken{},
		&models.DeviceLogin{},
		&models.AiGeneratedImage{},
	))

	env := &testEnv{
		repo:      repo.New(db),
		generator: &stubGenerator{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	env.auth = &service.AuthService{
		Repo:            env.repo,
		LoginTokenTTL:   15 * time.Minute,
		SessionTokenTTL: 48 * time.Hour,
		Now:             func() time.Time { return env.now },
	}
	credits := &service.CreditService{Repo: env.repo}
	generate := &service.GenerateService{
		Repo:      env.repo,
		Credits:   credits,
		Generator: env.generator,
		Store:     stubStore{},
		Now:       func() time.Time { return env.now },
	}

	env.session = &mw.SessionAuth{Secret: []byte("test-session-secret"), TTL: time.Hour}

	env.e = echo.New()
	Register(env.e, &Deps{
		Auth:    &AuthHTTP{Svc: env.auth},
		Mobile:  &MobileHTTP{Auth: env.auth, Credits: credits, Generate: generate},
		Web:     &WebHTTP{Auth: env.auth, Credits: credits, Generate: generate, Repo: env.repo, Session: env.session},
		Session: env.session,
		Bearer:  &mw.BearerAuth{Auth: env.auth},
		Limiter: mw.NewRateLimiter(rate.Inf, 0),
	})
	return env
}

func (env *testEnv) advance(d time.Duration) { env.now = env.now.Add(d) }

func (env *testEnv) createUser(t *testing.T, credits int) *models.User {
	t.Helper()

	user := &models.User{
		Name:    "Test User",
		Email:   "u_" + uuid.NewString() + "@example.com",
		Credits: credits,
	}
	require.NoError(t, env.repo.DB.Create(user).Error)
	// The credits column has a DB default of 3 and GORM omits zero values on
	// insert, so force the requested balance explicitly.
	require.NoError(t, env.repo.DB.Model(user).UpdateColumn("credits", credits).Error)
	return user
}

// pendingToken seeds an unredeemed QR login token.
func (env *testEnv) pendingToken(t *testing.T, userID uint) string {
	t.Helper()
	return env.seedToken(t, userID, env.now.Add(15*time.Minute), false)
}

// bearerToken seeds an active device session token.
func (env *testEnv) bearerToken(t *testing.T, userID uint) string {
	t.Helper()
	return env.seedToken(t, userID, env.now.Add(48*time.Hour), true)
}

func (env *testEnv) seedToken(t *testing.T, userID uint, expiresAt time.Time, used bool) string {
	t.Helper()

	token, err := service.NewSecureToken()
	require.NoError(t, err)
	require.NoError(t, env.repo.CreateAuthToken(context.Background(), &models.AuthToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		IsUsed:    used,
	}))
	return token
}

func (env *testEnv) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()

	cookie, err := env.session.IssueCookie(user)
	require.NoError(t, err)
	return cookie
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func jsonUnmarshal(rec *httptest.ResponseRecorder, out interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), out)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}
