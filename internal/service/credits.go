package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redecorapp/redecor/internal/events"
	"github.com/redecorapp/redecor/internal/logging"
	"github.com/redecorapp/redecor/internal/models"
	"github.com/redecorapp/redecor/internal/repo"
)

// CreditService is the ledger: every balance mutation in the system goes
// through Grant or Debit, both of which are single-statement atomic updates
// at the repo level.
type CreditService struct {
	Repo   *repo.GormRepo
	Events *events.Producer
}

type creditEvent struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Delta     int       `json:"delta"`
	Balance   int       `json:"balance"`
	PaymentID string    `json:"payment_id,omitempty"`
	At        time.Time `json:"at"`
}

func (s *CreditService) publish(ctx context.Context, user *models.User, delta int, paymentID string) {
	ev := creditEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Delta:     delta,
		Balance:   user.Credits,
		PaymentID: paymentID,
		At:        time.Now(),
	}
	if err := s.Events.Publish(ctx, events.TopicCreditEvents, fmt.Sprint(user.ID), ev); err != nil {
		logging.FromContext(ctx).Warn("credit_event_publish_failed", "error", err)
	}
}

// Grant adds amount credits. The amount is caller-supplied and must be a
// positive integer; there is no upper bound here, the payment boundary is
// expected to have priced it.
func (s *CreditService) Grant(ctx context.Context, userID uint, amount int, paymentID string) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credits must be a positive integer", ErrValidation)
	}

	user, err := s.Repo.AddCredits(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("credits_granted", "user_id", userID, "amount", amount, "balance", user.Credits, "payment_id", paymentID)
	s.publish(ctx, user, amount, paymentID)
	return user, nil
}

func (s *CreditService) GrantByEmail(ctx context.Context, email string, amount int) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credits must be a positive integer", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.Repo.AddCreditsByEmail(ctx, email, amount)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("credits_granted", "email", email, "amount", amount, "balance", user.Credits)
	s.publish(ctx, user, amount, "")
	return user, nil
}

// Debit decrements the balance if and only if it covers amount. On
// ErrInsufficientCredits the returned user still carries the (untouched)
// balance so callers can report it.
func (s *CreditService) Debit(ctx context.Context, userID uint, amount int) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}

	user, err := s.Repo.DebitCredits(ctx, userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInsufficientCredits):
			return user, ErrInsufficientCredits
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		default:
			return nil, err
		}
	}

	logging.FromContext(ctx).Info("credits_debited", "user_id", userID, "amount", amount, "balance", user.Credits)
	s.publish(ctx, user, -amount, "")
	return user, nil
}

func (s *CreditService) DebitByEmail(ctx context.Context, email string, amount int) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.Repo.DebitCreditsByEmail(ctx, email, amount)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInsufficientCredits):
			return user, ErrInsufficientCredits
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		default:
			return nil, err
		}
	}

	logging.FromContext(ctx).Info("credits_debited", "email", email, "amount", amount, "balance", user.Credits)
	s.publish(ctx, user, -amount, "")
	return user, nil
}

// Verify is the read-only balance check.
func (s *CreditService) Verify(ctx context.Context, userID uint) (int, bool, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, false, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return 0, false, err
	}
	return user.Credits, user.Credits >= 1, nil
}
