package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/redecorapp/redecor/internal/models"
)

func (r *GormRepo) CreateAuthToken(ctx context.Context, token *models.AuthToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

func (r *GormRepo) FindAuthToken(ctx context.Context, token string) (*models.AuthToken, error) {
	var row models.AuthToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// RedeemToken consumes a login token and binds a device to it as one
// transaction: either the token flips to used AND the device row exists, or
// neither happened. The consumed-check-and-set is a single conditional update,
// so concurrent redemptions of the same token yield exactly one winner.
func (r *GormRepo) RedeemToken(ctx context.Context, token, deviceName, deviceLocation string, now time.Time) (*models.AuthToken, *models.DeviceLogin, error) {
	var (
		authToken models.AuthToken
		device    models.DeviceLogin
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", token).First(&authToken).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Expiry is checked before consumption so an expired token is never
		// marked used and never gains a device binding.
		if !now.Before(authToken.ExpiresAt) {
			return ErrTokenExpired
		}

		res := tx.Model(&models.AuthToken{}).
			Where("id = ? AND is_used = ?", authToken.ID, false).
			Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenConsumed
		}
		authToken.IsUsed = true

		device = models.DeviceLogin{
			UserID:         authToken.UserID,
			DeviceName:     deviceName,
			DeviceLocation: deviceLocation,
			TokenID:        authToken.ID,
			LastLoginAt:    now,
			IsActive:       true,
		}
		return tx.Create(&device).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &authToken, &device, nil
}

// RotateDeviceToken inserts a fresh session token and repoints the device at
// it in one transaction. The previous token row is left orphaned.
func (r *GormRepo) RotateDeviceToken(ctx context.Context, deviceID uint, token *models.AuthToken, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(token).Error; err != nil {
			return err
		}
		return tx.Model(&models.DeviceLogin{}).
			Where("id = ?", deviceID).
			Updates(map[string]interface{}{
				"token_id":      token.ID,
				"last_login_at": now,
			}).Error
	})
}
