package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/redecorapp/redecor/internal/models"
)

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindOrCreateUser resolves the identity-provider profile to a local row,
// creating it with the default credit balance on first login.
func (r *GormRepo) FindOrCreateUser(ctx context.Context, name, email, image string) (*models.User, bool, error) {
	user := models.User{
		Name:    name,
		Email:   email,
		Image:   image,
		Credits: 3,
	}
	tx := r.DB.WithContext(ctx).Where("email = ?", email).FirstOrCreate(&user)
	if tx.Error != nil {
		return nil, false, tx.Error
	}
	return &user, tx.RowsAffected > 0, nil
}

// AddCredits increments the balance in a single statement and returns the
// updated row.
func (r *GormRepo) AddCredits(ctx context.Context, userID uint, amount int) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetUserByID(ctx, userID)
}

func (r *GormRepo) AddCreditsByEmail(ctx context.Context, email string, amount int) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetUserByEmail(ctx, email)
}

// DebitCredits is a conditional decrement: the balance check and the write are
// one statement, so two concurrent debits can never both pass against a stale
// read and drive the balance negative.
func (r *GormRepo) DebitCredits(ctx context.Context, userID uint, amount int) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		user, err := r.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return user, ErrInsufficientCredits
	}
	return r.GetUserByID(ctx, userID)
}

func (r *GormRepo) DebitCreditsByEmail(ctx context.Context, email string, amount int) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND credits >= ?", email, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		user, err := r.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return user, ErrInsufficientCredits
	}
	return r.GetUserByEmail(ctx, email)
}
