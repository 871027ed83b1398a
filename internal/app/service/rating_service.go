package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	apperrors "github.com/whatthedob/whatthedob-backend/internal/errors"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
)

// RatingBroadcaster pushes rating updates to live clients.
type RatingBroadcaster interface {
	Publish(event interface{}) error
}

// RatingService records anonymous ratings and keeps per-item aggregates.
type RatingService interface {
	SubmitRating(ctx context.Context, sessionID, item string, rating int) (*model.ItemRating, error)
	GetItemRating(ctx context.Context, item string) (*model.ItemRating, error)
	GetUserRating(ctx context.Context, sessionID, item string) (*model.UserRating, error)
}

type ratingService struct {
	repo        repository.RatingRepository
	broadcaster RatingBroadcaster
}

// NewRatingService creates a rating service. broadcaster may be nil.
func NewRatingService(repo repository.RatingRepository, broadcaster RatingBroadcaster) RatingService {
	return &ratingService{
		repo:        repo,
		broadcaster: broadcaster,
	}
}

// ValidateRating checks a submission without touching the store and
// returns the trimmed session id and item.
func ValidateRating(sessionID, item string, rating int) (string, string, error) {
	sessionID = strings.TrimSpace(sessionID)
	item = strings.TrimSpace(item)

	if sessionID == "" {
		return "", "", fmt.Errorf("%w: session id is required", apperrors.ErrValidation)
	}
	if item == "" {
		return "", "", fmt.Errorf("%w: item is required", apperrors.ErrValidation)
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return "", "", fmt.Errorf("%w: rating %d must be between %d and %d",
			apperrors.ErrValidation, rating, model.MinRating, model.MaxRating)
	}
	return sessionID, item, nil
}

func (s *ratingService) SubmitRating(ctx context.Context, sessionID, item string, rating int) (*model.ItemRating, error) {
	sessionID, item, err := ValidateRating(sessionID, item, rating)
	if err != nil {
		logger.Warn("Rejected rating submission", map[string]interface{}{
			"item":   item,
			"rating": rating,
			"error":  err.Error(),
		})
		return nil, err
	}

	var bucket *model.ItemRating
	err = retryOnConflict(ctx, "submit rating", func() error {
		var err error
		bucket, err = s.repo.UpsertUserRating(ctx, sessionID, item, rating)
		return err
	})
	if err != nil {
		if apperrors.IsUnknownEntity(err) {
			logger.Warn("Rating submitted for unknown item", map[string]interface{}{
				"item": item,
			})
		}
		return nil, err
	}

	logger.Info("Rating recorded", map[string]interface{}{
		"item":         bucket.Value,
		"total_rating": bucket.TotalRating,
		"rating_count": bucket.RatingCount,
	})

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(model.NewRatingUpdate(bucket)); err != nil {
			logger.Warn("Failed to publish rating update", map[string]interface{}{
				"item":  bucket.Value,
				"error": err.Error(),
			})
		}
	}
	return bucket, nil
}

// GetItemRating returns nil when the item has never been rated.
func (s *ratingService) GetItemRating(ctx context.Context, item string) (*model.ItemRating, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, fmt.Errorf("%w: item is required", apperrors.ErrValidation)
	}
	return s.repo.FindItemRating(ctx, item)
}

// GetUserRating returns nil when the session has not rated the item.
func (s *ratingService) GetUserRating(ctx context.Context, sessionID, item string) (*model.UserRating, error) {
	sessionID = strings.TrimSpace(sessionID)
	item = strings.TrimSpace(item)
	if sessionID == "" || item == "" {
		return nil, nil
	}
	return s.repo.FindUserRating(ctx, sessionID, item)
}
