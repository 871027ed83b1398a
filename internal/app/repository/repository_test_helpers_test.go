package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/db"
	"gorm.io/gorm"
)

func setupRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func countRows(t *testing.T, testDB *gorm.DB, value interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, testDB.Model(value).Count(&n).Error)
	return n
}

func snapshot(date string, campusID uint, meal string, items ...model.SnapshotItem) model.MenuSnapshot {
	return model.MenuSnapshot{Date: date, CampusID: campusID, MealName: meal, Items: items}
}

func item(value, category string, tags ...string) model.SnapshotItem {
	return model.SnapshotItem{Value: value, Category: category, Tags: tags}
}

// menuItemValues lists the item names mapped to a menu, in mapping order.
func menuItemValues(t *testing.T, testDB *gorm.DB, date string, campusID uint, meal string) []string {
	t.Helper()
	var mealRow model.Meal
	require.NoError(t, testDB.Where("name_key = ?", model.NormalizeKey(meal)).First(&mealRow).Error)

	mappings, err := NewMenuQueryRepository(testDB).FindMappingsByKey(context.Background(), date, campusID, mealRow.ID)
	require.NoError(t, err)

	values := make([]string, 0, len(mappings))
	for _, m := range mappings {
		values = append(values, m.MenuItem.Value)
	}
	return values
}
