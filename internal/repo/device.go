package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/redecorapp/redecor/internal/models"
)

func (r *GormRepo) FindActiveDevice(ctx context.Context, deviceID, userID uint) (*models.DeviceLogin, error) {
	var device models.DeviceLogin
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", deviceID, userID, true).
		First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *GormRepo) ListDevices(ctx context.Context, userID uint) ([]models.DeviceLogin, error) {
	var devices []models.DeviceLogin
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_login_at DESC").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// DeactivateDevice soft-revokes a binding; the row stays for audit.
func (r *GormRepo) DeactivateDevice(ctx context.Context, deviceID, userID uint) error {
	res := r.DB.WithContext(ctx).Model(&models.DeviceLogin{}).
		Where("id = ? AND user_id = ? AND is_active = ?", deviceID, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
