package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrTokenConsumed       = errors.New("token already consumed")
	ErrTokenExpired        = errors.New("token expired")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
