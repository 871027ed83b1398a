package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	apperrors "github.com/whatthedob/whatthedob-backend/internal/errors"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownItem is returned for a rating on a food no menu has listed.
var ErrUnknownItem = fmt.Errorf("%w: menu item", apperrors.ErrUnknownEntity)

// RatingRepository maintains per-item rating aggregates.
type RatingRepository interface {
	// UpsertUserRating records a session's rating of an item and returns
	// the updated bucket. Arguments are expected to be validated.
	UpsertUserRating(ctx context.Context, sessionID, item string, rating int) (*model.ItemRating, error)
	FindItemRating(ctx context.Context, item string) (*model.ItemRating, error)
	FindUserRating(ctx context.Context, sessionID, item string) (*model.UserRating, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// lockBucket reads the bucket row with FOR UPDATE so concurrent writers
// on the same item apply their deltas one after another.
func lockBucket(tx *gorm.DB, nameKey string) (*model.ItemRating, error) {
	var rows []model.ItemRating
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name_key = ?", nameKey).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// createBucket creates the bucket for an item that is on a menu but has
// never been linked to one, then links every such item to it.
func createBucket(tx *gorm.DB, nameKey string) (*model.ItemRating, error) {
	var items []model.MenuItem
	if err := tx.Where("name_key = ?", nameKey).
		Order("id ASC").
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrUnknownItem
	}

	bucket := model.ItemRating{Value: items[0].Value, NameKey: nameKey}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&bucket).Error; err != nil {
		return nil, err
	}

	locked, err := lockBucket(tx, nameKey)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, fmt.Errorf("item_ratings: bucket %q missing after insert", nameKey)
	}

	if err := tx.Model(&model.MenuItem{}).
		Where("name_key = ? AND item_rating_id IS NULL", nameKey).
		Update("item_rating_id", locked.ID).Error; err != nil {
		return nil, err
	}
	return locked, nil
}

func (r *ratingRepository) UpsertUserRating(ctx context.Context, sessionID, item string, rating int) (*model.ItemRating, error) {
	nameKey := model.NormalizeKey(item)

	logger.Debug("Upserting user rating in database", map[string]interface{}{
		"item":   nameKey,
		"rating": rating,
	})

	var bucket model.ItemRating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockBucket(tx, nameKey)
		if err != nil {
			return err
		}
		if locked == nil {
			if locked, err = createBucket(tx, nameKey); err != nil {
				return err
			}
		}

		var existing []model.UserRating
		if err := tx.Where("item_rating_id = ? AND session_id = ?", locked.ID, sessionID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}

		if len(existing) == 0 {
			userRating := model.UserRating{
				RatingValue:  rating,
				SessionID:    sessionID,
				ItemRatingID: locked.ID,
			}
			if err := tx.Create(&userRating).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.ItemRating{}).
				Where("id = ?", locked.ID).
				Updates(map[string]interface{}{
					"total_rating": gorm.Expr("total_rating + ?", rating),
					"rating_count": gorm.Expr("rating_count + ?", 1),
				}).Error; err != nil {
				return err
			}
		} else {
			previous := existing[0]
			now := time.Now()
			if err := tx.Model(&model.UserRating{}).
				Where("id = ?", previous.ID).
				Updates(map[string]interface{}{
					"rating_value": rating,
					"updated_at":   &now,
				}).Error; err != nil {
				return err
			}
			if delta := rating - previous.RatingValue; delta != 0 {
				if err := tx.Model(&model.ItemRating{}).
					Where("id = ?", locked.ID).
					Update("total_rating", gorm.Expr("total_rating + ?", delta)).Error; err != nil {
					return err
				}
			}
		}

		return tx.First(&bucket, locked.ID).Error
	})
	if err != nil {
		if !errors.Is(err, ErrUnknownItem) {
			logger.Error("Failed to upsert user rating in database", err, map[string]interface{}{
				"item": nameKey,
			})
		}
		return nil, err
	}

	logger.Debug("User rating upserted in database", map[string]interface{}{
		"item":         nameKey,
		"total_rating": bucket.TotalRating,
		"rating_count": bucket.RatingCount,
	})
	return &bucket, nil
}

func (r *ratingRepository) FindItemRating(ctx context.Context, item string) (*model.ItemRating, error) {
	var rows []model.ItemRating
	if err := r.db.WithContext(ctx).
		Where("name_key = ?", model.NormalizeKey(item)).
		Limit(1).
		Find(&rows).Error; err != nil {
		logger.Error("Failed to find item rating", err, map[string]interface{}{
			"item": item,
		})
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *ratingRepository) FindUserRating(ctx context.Context, sessionID, item string) (*model.UserRating, error) {
	var rows []model.UserRating
	if err := r.db.WithContext(ctx).
		Joins("JOIN item_ratings ON item_ratings.id = user_ratings.item_rating_id").
		Where("item_ratings.name_key = ? AND user_ratings.session_id = ?", model.NormalizeKey(item), sessionID).
		Limit(1).
		Find(&rows).Error; err != nil {
		logger.Error("Failed to find user rating", err, map[string]interface{}{
			"item": item,
		})
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
