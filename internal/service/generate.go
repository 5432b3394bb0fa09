package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redecorapp/redecor/internal/events"
	"github.com/redecorapp/redecor/internal/logging"
	"github.com/redecorapp/redecor/internal/models"
	"github.com/redecorapp/redecor/internal/repo"
)

// ImageGenerator is the external AI provider boundary: source image plus
// prompt in, finished image bytes out.
type ImageGenerator interface {
	Generate(ctx context.Context, imageURL, prompt string) ([]byte, error)
}

// BlobStore persists a generated image and returns its stable public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// TransformationIndexer mirrors finished generations into the search index.
type TransformationIndexer interface {
	IndexTransformation(ctx context.Context, img *models.AiGeneratedImage) error
}

type GenerateService struct {
	Repo      *repo.GormRepo
	Credits   *CreditService
	Generator ImageGenerator
	Store     BlobStore
	Indexer   TransformationIndexer
	Events    *events.Producer

	// RefundOnFailure grants the debited credit back when any step after the
	// debit fails. Off by default: a blind refund makes naive client retries
	// a double-spend vector.
	RefundOnFailure bool

	Now func() time.Time
}

func (s *GenerateService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type GenerateRequest struct {
	ImageURL      string
	RoomType      string
	Style         string
	Customization string

	// Exactly one of UserID / UserEmail identifies the payer; mobile sends the
	// id, the web variant sends the email.
	UserID    uint
	UserEmail string
}

// ComposePrompt builds the provider prompt from the room selection.
func ComposePrompt(roomType, style, customization string) string {
	return strings.TrimSpace(fmt.Sprintf("A %s with a %s style interior %s", roomType, style, customization))
}

// Generate runs the paid pipeline: debit one credit, call the provider,
// persist the output to blob storage, record the transformation. The debit
// happens first; whether a post-debit failure refunds is policy.
func (s *GenerateService) Generate(ctx context.Context, req GenerateRequest) (*models.AiGeneratedImage, error) {
	l := logging.FromContext(ctx).With("svc", "generate", "room_type", req.RoomType, "style", req.Style)

	if req.ImageURL == "" || req.RoomType == "" || req.Style == "" {
		return nil, fmt.Errorf("%w: imageUrl, roomType and style are required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.Credits.Debit(ctx, user.ID, 1); err != nil {
		return nil, err
	}

	img, err := s.run(ctx, req, user)
	if err != nil {
		l.Error("generation_failed", "error", err, "refund", s.RefundOnFailure)
		if s.RefundOnFailure {
			if _, rerr := s.Credits.Grant(ctx, user.ID, 1, "refund"); rerr != nil {
				l.Error("refund_failed", "error", rerr)
			}
		}
		return nil, err
	}

	l.Info("generation_complete", "image_id", img.ID, "user_id", user.ID)
	return img, nil
}

func (s *GenerateService) resolveUser(ctx context.Context, req GenerateRequest) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case req.UserID != 0:
		user, err = s.Repo.GetUserByID(ctx, req.UserID)
	case req.UserEmail != "":
		user, err = s.Repo.GetUserByEmail(ctx, req.UserEmail)
	default:
		return nil, fmt.Errorf("%w: user identity is required", ErrValidation)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *GenerateService) run(ctx context.Context, req GenerateRequest, user *models.User) (*models.AiGeneratedImage, error) {
	prompt := ComposePrompt(req.RoomType, req.Style, req.Customization)

	data, err := s.Generator.Generate(ctx, req.ImageURL, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	key := fmt.Sprintf("room_redesign/%d_%s.png", s.now().UnixMilli(), uuid.NewString())
	url, err := s.Store.Upload(ctx, key, data, "image/png")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	img := &models.AiGeneratedImage{
		OriginalImageURL:    req.ImageURL,
		AiGeneratedImageURL: url,
		RoomType:            req.RoomType,
		Style:               req.Style,
		Customization:       req.Customization,
		UserEmail:           user.Email,
	}
	if err := s.Repo.CreateGeneratedImage(ctx, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// Indexing and event publishing are best-effort: the generation is
	// already durable.
	l := logging.FromContext(ctx)
	if s.Indexer != nil {
		if err := s.Indexer.IndexTransformation(ctx, img); err != nil {
			l.Warn("transformation_index_failed", "image_id", img.ID, "error", err)
		}
	}
	ev := map[string]interface{}{
		"image_id":  img.ID,
		"user_id":   user.ID,
		"email":     user.Email,
		"room_type": img.RoomType,
		"style":     img.Style,
		"url":       img.AiGeneratedImageURL,
	}
	if err := s.Events.Publish(ctx, events.TopicGenerationEvents, fmt.Sprint(user.ID), ev); err != nil {
		l.Warn("generation_event_publish_failed", "error", err)
	}

	return img, nil
}
