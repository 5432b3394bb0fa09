package repo

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/redecorapp/redecor/internal/models"
)

// These tests exercise the conditional-update invariants under real
// concurrency, which sqlite's single connection cannot do.

func newIntegrationRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := os.Getenv("REDECOR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("REDECOR_TEST_DATABASE_URL is required for tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AuthToken{},
		&models.DeviceLogin{},
		&models.AiGeneratedImage{},
	))

	t.Cleanup(func() {
		db.Exec("TRUNCATE TABLE ai_generated_images, device_logins, auth_tokens, users RESTART IDENTITY CASCADE")
	})

	return New(db)
}

func TestIntegration_ConcurrentDebits_NeverOverspend(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	user := &models.User{
		Name:    "Race User",
		Email:   "race_" + uuid.NewString() + "@example.com",
		Credits: 4,
	}
	require.NoError(t, r.DB.Create(user).Error)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := r.DebitCredits(ctx, user.ID, 1)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientCredits)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 4, successes)

	final, err := r.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Credits)
}

func TestIntegration_ConcurrentRedeems_ExactlyOneWinner(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	user := &models.User{
		Name:    "Race User",
		Email:   "race_" + uuid.NewString() + "@example.com",
		Credits: 3,
	}
	require.NoError(t, r.DB.Create(user).Error)

	token := &models.AuthToken{
		UserID:    user.ID,
		Token:     uuid.NewString() + uuid.NewString(),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, r.CreateAuthToken(ctx, token))

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := r.RedeemToken(ctx, token.Token, "device", "", time.Now())
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrTokenConsumed) || errors.Is(err, ErrNotFound), "unexpected error: %v", err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, winners)

	var devices int64
	require.NoError(t, r.DB.Model(&models.DeviceLogin{}).Where("user_id = ?", user.ID).Count(&devices).Error)
	assert.EqualValues(t, 1, devices)
}
