package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redecorapp/redecor/internal/logging"
	"github.com/redecorapp/redecor/internal/models"
	"github.com/redecorapp/redecor/internal/repo"
)

// AuthService owns the token store, the QR handshake and the device session
// registry.
type AuthService struct {
	Repo *repo.GormRepo

	LoginTokenTTL   time.Duration
	SessionTokenTTL time.Duration

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NewSecureToken returns 32 random bytes hex-encoded, giving the opaque token
// 256 bits of entropy.
func NewSecureToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    uint      `json:"userId"`
}

// IssueToken mints a short-lived login token for the QR code shown to the
// user's second device. The caller must already hold a web session resolving
// to userID.
func (s *AuthService) IssueToken(ctx context.Context, userID uint) (*IssuedToken, error) {
	l := logging.FromContext(ctx).With("svc", "auth.issue_token", "user_id", userID)

	if _, err := s.Repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("issue_failed", "reason", "session user missing from users table")
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	token, err := NewSecureToken()
	if err != nil {
		return nil, err
	}

	row := models.AuthToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: s.now().Add(s.LoginTokenTTL),
		IsUsed:    false,
	}
	if err := s.Repo.CreateAuthToken(ctx, &row); err != nil {
		l.Error("issue_failed", "error", err)
		return nil, err
	}

	l.Info("token_issued", "expires_at", row.ExpiresAt)
	return &IssuedToken{Token: row.Token, ExpiresAt: row.ExpiresAt, UserID: userID}, nil
}

type PublicUser struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Image   string `json:"image,omitempty"`
	Credits int    `json:"credits"`
}

func publicUser(u *models.User) PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image, Credits: u.Credits}
}

type DeviceSummary struct {
	ID          uint      `json:"id"`
	DeviceName  string    `json:"deviceName"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

type RedeemResult struct {
	User   PublicUser
	Device DeviceSummary
}

// RedeemToken claims a login token on behalf of a device. Exactly one
// concurrent caller wins; losers see ErrInvalidToken, expired tokens see
// ErrTokenExpired and leave no device binding behind.
func (s *AuthService) RedeemToken(ctx context.Context, token, deviceName, deviceLocation string) (*RedeemResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.redeem_token", "device_name", deviceName)

	if token == "" || deviceName == "" {
		return nil, fmt.Errorf("%w: token and device name are required", ErrValidation)
	}

	authToken, device, err := s.Repo.RedeemToken(ctx, token, deviceName, deviceLocation, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound), errors.Is(err, repo.ErrTokenConsumed):
			l.Warn("redeem_failed", "reason", "invalid or consumed token")
			return nil, ErrInvalidToken
		case errors.Is(err, repo.ErrTokenExpired):
			l.Warn("redeem_failed", "reason", "token expired")
			return nil, ErrTokenExpired
		default:
			l.Error("redeem_failed", "error", err)
			return nil, err
		}
	}

	user, err := s.Repo.GetUserByID(ctx, authToken.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	l.Info("device_bound", "user_id", user.ID, "device_id", device.ID)
	return &RedeemResult{
		User: publicUser(user),
		Device: DeviceSummary{
			ID:          device.ID,
			DeviceName:  device.DeviceName,
			LastLoginAt: device.LastLoginAt,
		},
	}, nil
}

// RefreshToken rotates the long-lived session token of an already bound,
// active device. The fresh token is inserted consumed: it never goes through
// redemption.
func (s *AuthService) RefreshToken(ctx context.Context, deviceID, userID uint) (*IssuedToken, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh_token", "device_id", deviceID, "user_id", userID)

	if deviceID == 0 {
		return nil, fmt.Errorf("%w: device id is required", ErrValidation)
	}

	device, err := s.Repo.FindActiveDevice(ctx, deviceID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "reason", "device not found or not authorized")
			return nil, fmt.Errorf("%w: device not found or not authorized", ErrNotFound)
		}
		return nil, err
	}

	token, err := NewSecureToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	row := models.AuthToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.SessionTokenTTL),
		IsUsed:    true,
	}
	if err := s.Repo.RotateDeviceToken(ctx, device.ID, &row, now); err != nil {
		l.Error("refresh_failed", "error", err)
		return nil, err
	}

	l.Info("token_refreshed", "expires_at", row.ExpiresAt)
	return &IssuedToken{Token: row.Token, ExpiresAt: row.ExpiresAt, UserID: userID}, nil
}

// ValidateBearer resolves a bearer token to its user under the strict
// contract used by every protected endpoint: the token must exist, be
// consumed (an active session, not a pending QR token), be unexpired, and,
// when userID is non-zero, belong to that user.
func (s *AuthService) ValidateBearer(ctx context.Context, token string, userID uint) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	row, err := s.Repo.FindAuthToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if userID != 0 && row.UserID != userID {
		return nil, ErrInvalidToken
	}
	if !row.IsUsed {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(row.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	user, err := s.Repo.GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate is the mobile bootstrap lookup performed between scanning a QR
// code and redeeming it. Consumption state is deliberately not required here;
// expiry still is.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.AuthToken, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}

	row, err := s.Repo.FindAuthToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !s.now().Before(row.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return row, nil
}

func (s *AuthService) ListDevices(ctx context.Context, userID uint) ([]models.DeviceLogin, error) {
	return s.Repo.ListDevices(ctx, userID)
}

func (s *AuthService) RevokeDevice(ctx context.Context, deviceID, userID uint) error {
	if deviceID == 0 {
		return fmt.Errorf("%w: device id is required", ErrValidation)
	}
	err := s.Repo.DeactivateDevice(ctx, deviceID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: device not found", ErrNotFound)
	}
	return err
}

// VerifyUser upserts the identity-provider profile into the local user table.
// New users start with the default credit balance.
func (s *AuthService) VerifyUser(ctx context.Context, name, email, image string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.verify_user", "email", email)

	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, created, err := s.Repo.FindOrCreateUser(ctx, name, email, image)
	if err != nil {
		return nil, err
	}
	if created {
		l.Info("user_created", "user_id", user.ID)
	}
	return user, nil
}
