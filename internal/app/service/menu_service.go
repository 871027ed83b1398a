package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	apperrors "github.com/whatthedob/whatthedob-backend/internal/errors"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
)

const (
	campusFilterCacheKey = "filters:campuses"
	mealFilterCacheKey   = "filters:meals"

	conflictRetries = 1
)

// Cache is the JSON key/value store used for filter lists.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// MenuService ingests scraped menus and serves them back.
type MenuService interface {
	Ingest(ctx context.Context, snapshots []model.MenuSnapshot) (*repository.IngestResult, error)
	UpsertFilters(ctx context.Context, campuses map[uint]string, meals []string) error
	GetMenu(ctx context.Context, date string, campusID, mealID uint) (*model.MenuResponse, error)
	GetCampuses(ctx context.Context) ([]model.FilterOption, error)
	GetMeals(ctx context.Context) ([]model.FilterOption, error)
}

type menuService struct {
	menuRepo  repository.MenuRepository
	queryRepo repository.MenuQueryRepository
	cache     Cache
	filterTTL time.Duration
}

// NewMenuService creates a menu service. cache may be nil.
func NewMenuService(
	menuRepo repository.MenuRepository,
	queryRepo repository.MenuQueryRepository,
	cache Cache,
	filterTTL time.Duration,
) MenuService {
	return &menuService{
		menuRepo:  menuRepo,
		queryRepo: queryRepo,
		cache:     cache,
		filterTTL: filterTTL,
	}
}

// ValidateDate checks the MM/DD/YY date format the upstream site uses.
// The store itself treats dates as opaque strings.
func ValidateDate(date string) error {
	if _, err := time.Parse(model.DateLayout, strings.TrimSpace(date)); err != nil {
		return fmt.Errorf("%w: date %q must be MM/DD/YY", apperrors.ErrValidation, date)
	}
	return nil
}

func (s *menuService) Ingest(ctx context.Context, snapshots []model.MenuSnapshot) (*repository.IngestResult, error) {
	var result *repository.IngestResult
	err := retryOnConflict(ctx, "ingest", func() error {
		var err error
		result, err = s.menuRepo.UpsertMenus(ctx, snapshots)
		return err
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			logger.Warn("Rejected menu snapshots", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			logger.Error("Failed to ingest menus", err, map[string]interface{}{
				"snapshots": len(snapshots),
			})
		}
		return nil, err
	}

	s.invalidateFilters(ctx)

	logger.Info("Menus ingested", map[string]interface{}{
		"snapshots":     result.Snapshots,
		"menus":         result.Menus,
		"menus_created": result.MenusCreated,
		"items":         result.Items,
		"items_created": result.ItemsCreated,
		"mappings":      result.Mappings,
	})
	return result, nil
}

func (s *menuService) UpsertFilters(ctx context.Context, campuses map[uint]string, meals []string) error {
	err := retryOnConflict(ctx, "upsert filters", func() error {
		return s.menuRepo.UpsertFilters(ctx, campuses, meals)
	})
	if err != nil {
		logger.Error("Failed to upsert filters", err, map[string]interface{}{
			"campuses": len(campuses),
			"meals":    len(meals),
		})
		return err
	}

	s.invalidateFilters(ctx)

	logger.Info("Filters upserted", map[string]interface{}{
		"campuses": len(campuses),
		"meals":    len(meals),
	})
	return nil
}

// GetMenu returns nil when nothing was served for the key.
func (s *menuService) GetMenu(ctx context.Context, date string, campusID, mealID uint) (*model.MenuResponse, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, fmt.Errorf("%w: date is required", apperrors.ErrValidation)
	}

	menu, err := s.queryRepo.FindMenu(ctx, date, campusID, mealID)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, nil
	}

	mappings, err := s.queryRepo.FindMappingsByMenuID(ctx, menu.ID)
	if err != nil {
		return nil, err
	}

	response := &model.MenuResponse{
		Date:     menu.Date,
		CampusID: menu.CampusID,
		MealID:   menu.MealID,
		Meal:     menu.Meal.Name,
		Items:    make([]model.MenuItemResponse, 0, len(mappings)),
	}
	for _, mapping := range mappings {
		item := mapping.MenuItem
		entry := model.MenuItemResponse{
			Value:    item.Value,
			Category: item.Category.Name,
			Tags:     item.TagList(),
		}
		if item.ItemRating != nil {
			entry.TotalRating = item.ItemRating.TotalRating
			entry.RatingCount = item.ItemRating.RatingCount
			entry.AverageRating = item.ItemRating.Average()
		}
		response.Items = append(response.Items, entry)
	}
	return response, nil
}

func (s *menuService) GetCampuses(ctx context.Context) ([]model.FilterOption, error) {
	return s.cachedFilters(ctx, campusFilterCacheKey, func() ([]model.FilterOption, error) {
		campuses, err := s.queryRepo.ListCampuses(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]model.FilterOption, 0, len(campuses))
		for _, campus := range campuses {
			options = append(options, model.FilterOption{ID: campus.ID, Name: campus.Name})
		}
		return options, nil
	})
}

func (s *menuService) GetMeals(ctx context.Context) ([]model.FilterOption, error) {
	return s.cachedFilters(ctx, mealFilterCacheKey, func() ([]model.FilterOption, error) {
		meals, err := s.queryRepo.ListMeals(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]model.FilterOption, 0, len(meals))
		for _, meal := range meals {
			options = append(options, model.FilterOption{ID: meal.ID, Name: meal.Name})
		}
		return options, nil
	})
}

// cachedFilters serves key from the cache, loading and storing it on a
// miss. Cache failures fall through to the store.
func (s *menuService) cachedFilters(ctx context.Context, key string, load func() ([]model.FilterOption, error)) ([]model.FilterOption, error) {
	if s.cache != nil {
		var cached []model.FilterOption
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warn("Filter cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		if hit {
			return cached, nil
		}
	}

	options, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, options, s.filterTTL); err != nil {
			logger.Warn("Filter cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return options, nil
}

func (s *menuService) invalidateFilters(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, campusFilterCacheKey, mealFilterCacheKey); err != nil {
		logger.Warn("Filter cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// retryOnConflict re-runs fn when it lost a unique-key race. The rerun
// resolves the row the other writer created.
func retryOnConflict(ctx context.Context, op string, fn func() error) error {
	err := fn()
	for attempt := 0; attempt < conflictRetries && apperrors.IsConflict(err); attempt++ {
		if ctx.Err() != nil {
			return err
		}
		logger.Warn("Retrying after unique constraint conflict", map[string]interface{}{
			"operation": op,
			"attempt":   attempt + 1,
		})
		err = fn()
	}
	return err
}
