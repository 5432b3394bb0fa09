package service

import "errors"

var (
	ErrValidation          = errors.New("validation")           // 400
	ErrUnauthorized        = errors.New("unauthorized")         // 401
	ErrInvalidToken        = errors.New("invalid token")        // 401
	ErrTokenExpired        = errors.New("token expired")        // 401 web, 603 mobile
	ErrNotFound            = errors.New("not found")            // 404
	ErrInsufficientCredits = errors.New("insufficient credits") // varies per endpoint
	ErrUpstream            = errors.New("upstream provider")    // 500
	ErrStorage             = errors.New("storage")              // 500
)
