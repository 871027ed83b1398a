package repository

import (
	"context"
	"strings"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"gorm.io/gorm"
)

// MenuQueryRepository is the read side of the menu store. Lookups that
// match nothing return nil or an empty slice, never an error.
type MenuQueryRepository interface {
	FindMenu(ctx context.Context, date string, campusID, mealID uint) (*model.Menu, error)
	FindMappingsByMenuID(ctx context.Context, menuID uint) ([]model.MenuMapping, error)
	FindMappingsByKey(ctx context.Context, date string, campusID, mealID uint) ([]model.MenuMapping, error)
	ListCampuses(ctx context.Context) ([]model.Campus, error)
	ListMeals(ctx context.Context) ([]model.Meal, error)
}

type menuQueryRepository struct {
	db *gorm.DB
}

func NewMenuQueryRepository(db *gorm.DB) MenuQueryRepository {
	return &menuQueryRepository{db: db}
}

func (r *menuQueryRepository) FindMenu(ctx context.Context, date string, campusID, mealID uint) (*model.Menu, error) {
	var menus []model.Menu
	err := r.db.WithContext(ctx).
		Preload("Meal").
		Preload("Campus").
		Where("date = ? AND campus_id = ? AND meal_id = ?", strings.TrimSpace(date), campusID, mealID).
		Limit(1).
		Find(&menus).Error
	if err != nil {
		logger.Error("Failed to find menu", err, map[string]interface{}{
			"date":      date,
			"campus_id": campusID,
			"meal_id":   mealID,
		})
		return nil, err
	}
	if len(menus) == 0 {
		return nil, nil
	}
	return &menus[0], nil
}

func (r *menuQueryRepository) mappingQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("MenuItem").
		Preload("MenuItem.Category").
		Preload("MenuItem.ItemRating")
}

func (r *menuQueryRepository) FindMappingsByMenuID(ctx context.Context, menuID uint) ([]model.MenuMapping, error) {
	mappings := []model.MenuMapping{}
	if err := r.mappingQuery(ctx).
		Where("menu_id = ?", menuID).
		Order("id ASC").
		Find(&mappings).Error; err != nil {
		logger.Error("Failed to find menu mappings", err, map[string]interface{}{
			"menu_id": menuID,
		})
		return nil, err
	}
	return mappings, nil
}

func (r *menuQueryRepository) FindMappingsByKey(ctx context.Context, date string, campusID, mealID uint) ([]model.MenuMapping, error) {
	mappings := []model.MenuMapping{}
	if err := r.mappingQuery(ctx).
		Joins("JOIN menus ON menus.id = menu_mappings.menu_id").
		Where("menus.date = ? AND menus.campus_id = ? AND menus.meal_id = ?", strings.TrimSpace(date), campusID, mealID).
		Order("menu_mappings.id ASC").
		Find(&mappings).Error; err != nil {
		logger.Error("Failed to find menu mappings by key", err, map[string]interface{}{
			"date":      date,
			"campus_id": campusID,
			"meal_id":   mealID,
		})
		return nil, err
	}
	return mappings, nil
}

func (r *menuQueryRepository) ListCampuses(ctx context.Context) ([]model.Campus, error) {
	campuses := []model.Campus{}
	if err := r.db.WithContext(ctx).
		Where("disabled = ?", false).
		Order("id ASC").
		Find(&campuses).Error; err != nil {
		logger.Error("Failed to list campuses", err)
		return nil, err
	}
	return campuses, nil
}

func (r *menuQueryRepository) ListMeals(ctx context.Context) ([]model.Meal, error) {
	meals := []model.Meal{}
	if err := r.db.WithContext(ctx).
		Where("disabled = ?", false).
		Order("id ASC").
		Find(&meals).Error; err != nil {
		logger.Error("Failed to list meals", err)
		return nil, err
	}
	return meals, nil
}
