package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/redecorapp/redecor/internal/models"
	"github.com/redecorapp/redecor/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
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

	return repo.New(db)
}

func seedUser(t *testing.T, r *repo.GormRepo, credits int) *models.User {
	t.Helper()

	user := &models.User{
		Name:    "Test User",
		Email:   "u_" + uuid.NewString() + "@example.com",
		Credits: credits,
	}
	require.NoError(t, r.DB.Create(user).Error)
	// The credits column has a DB default of 3 and GORM omits zero values on
	// insert, so force the requested balance explicitly.
	require.NoError(t, r.DB.Model(user).UpdateColumn("credits", credits).Error)
	return user
}

func newAuthService(r *repo.GormRepo, now time.Time) *AuthService {
	return &AuthService{
		Repo:            r,
		LoginTokenTTL:   15 * time.Minute,
		SessionTokenTTL: 48 * time.Hour,
		Now:             func() time.Time { return now },
	}
}
