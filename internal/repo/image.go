package repo

import (
	"context"

	"github.com/redecorapp/redecor/internal/models"
)

func (r *GormRepo) CreateGeneratedImage(ctx context.Context, image *models.AiGeneratedImage) error {
	return r.DB.WithContext(ctx).Create(image).Error
}

func (r *GormRepo) ListTransformations(ctx context.Context, email string) ([]models.AiGeneratedImage, error) {
	var rows []models.AiGeneratedImage
	err := r.DB.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormRepo) ListRecentTransformations(ctx context.Context, email string, limit int) ([]models.AiGeneratedImage, error) {
	var rows []models.AiGeneratedImage
	err := r.DB.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
