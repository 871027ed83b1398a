package db

import (
	"fmt"
	"strings"

	"github.com/whatthedob/whatthedob-backend/config"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.Campus{},
		&model.Meal{},
		&model.Category{},
		&model.ItemRating{},
		&model.MenuItem{},
		&model.Menu{},
		&model.MenuMapping{},
		&model.UserRating{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed makes the configured campus and meals available before the first
// fetch has run. Rows that already exist are left alone.
func Seed(cfg *config.MenuFetchConfig) error {
	return seedInitialData(DB, cfg)
}

func seedInitialData(db *gorm.DB, cfg *config.MenuFetchConfig) error {
	logger.Info("Seeding initial data...")

	if cfg.SelectedCampus != 0 {
		campus := model.Campus{ID: cfg.SelectedCampus, Name: fmt.Sprintf("Campus %d", cfg.SelectedCampus)}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&campus).Error; err != nil {
			logger.Error("Failed to seed campus", err)
			return err
		}
	}

	meals := make([]model.Meal, 0, len(cfg.Meals))
	seen := make(map[string]bool, len(cfg.Meals))
	for _, name := range cfg.Meals {
		name = strings.TrimSpace(name)
		key := model.NormalizeKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		meals = append(meals, model.Meal{Name: name, NameKey: key})
	}
	if len(meals) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&meals).Error; err != nil {
			logger.Error("Failed to seed meals", err)
			return err
		}
	}

	logger.Info("Initial data seeded successfully", map[string]interface{}{
		"meals": len(meals),
	})
	return nil
}
