package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	apperrors "github.com/whatthedob/whatthedob-backend/internal/errors"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngestResult summarizes one UpsertMenus call.
type IngestResult struct {
	Snapshots    int `json:"snapshots"`
	Menus        int `json:"menus"`
	MenusCreated int `json:"menus_created"`
	Items        int `json:"items"`
	ItemsCreated int `json:"items_created"`
	ItemsUpdated int `json:"items_updated"`
	Mappings     int `json:"mappings"`
}

// MenuRepository writes scraped menus into the normalized store.
type MenuRepository interface {
	// UpsertMenus ingests a batch of snapshots in a single transaction.
	// A snapshot replaces the whole item set of its (date, meal, campus)
	// menu; when the batch repeats a key the later snapshot wins.
	UpsertMenus(ctx context.Context, snapshots []model.MenuSnapshot) (*IngestResult, error)
	// UpsertFilters seeds campuses and meals from the upstream filter lists.
	UpsertFilters(ctx context.Context, campuses map[uint]string, meals []string) error
}

type menuRepository struct {
	db        *gorm.DB
	refs      ReferenceRepository
	chunkSize int
}

func NewMenuRepository(db *gorm.DB, refs ReferenceRepository) MenuRepository {
	return NewMenuRepositoryWithChunkSize(db, refs, DefaultLookupChunkSize)
}

func NewMenuRepositoryWithChunkSize(db *gorm.DB, refs ReferenceRepository, chunkSize int) MenuRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultLookupChunkSize
	}
	return &menuRepository{db: db, refs: refs, chunkSize: chunkSize}
}

type menuKey struct {
	date     string
	mealKey  string
	campusID uint
}

type itemKey struct {
	nameKey     string
	categoryKey string
}

type plannedItem struct {
	key      itemKey
	value    string
	category string
	tags     string
}

type plannedMenu struct {
	key      menuKey
	date     string
	mealName string
	campusID uint
	source   int
	items    []itemKey
}

// ingestPlan is a batch reduced to the distinct rows it touches.
type ingestPlan struct {
	menus      []*plannedMenu
	items      []*plannedItem
	meals      []string
	categories []string
	itemNames  []string
	campusIDs  []uint
}

// planIngest deduplicates a batch without touching the store. Only the
// winning snapshot of each menu key contributes items.
func planIngest(snapshots []model.MenuSnapshot) (*ingestPlan, error) {
	plan := &ingestPlan{}
	byKey := make(map[menuKey]*plannedMenu, len(snapshots))

	for i, snap := range snapshots {
		date := strings.TrimSpace(snap.Date)
		meal := strings.TrimSpace(snap.MealName)
		switch {
		case date == "":
			return nil, fmt.Errorf("%w: snapshot %d has no date", apperrors.ErrValidation, i)
		case meal == "":
			return nil, fmt.Errorf("%w: snapshot %d has no meal", apperrors.ErrValidation, i)
		case snap.CampusID == 0:
			return nil, fmt.Errorf("%w: snapshot %d has no campus", apperrors.ErrValidation, i)
		}

		key := menuKey{date: date, mealKey: model.NormalizeKey(meal), campusID: snap.CampusID}
		pm, ok := byKey[key]
		if !ok {
			pm = &plannedMenu{key: key}
			byKey[key] = pm
			plan.menus = append(plan.menus, pm)
		}
		pm.date = date
		pm.mealName = meal
		pm.campusID = snap.CampusID
		pm.source = i
	}

	winners := make([]bool, len(snapshots))
	mealSeen := make(map[string]bool)
	campusSeen := make(map[uint]bool)
	for _, pm := range plan.menus {
		winners[pm.source] = true
		if !mealSeen[pm.key.mealKey] {
			mealSeen[pm.key.mealKey] = true
			plan.meals = append(plan.meals, pm.mealName)
		}
		if !campusSeen[pm.campusID] {
			campusSeen[pm.campusID] = true
			plan.campusIDs = append(plan.campusIDs, pm.campusID)
		}
	}

	// Winning snapshots are walked in batch order, so the last spelling
	// and the last tags seen for an item are the ones stored.
	items := make(map[itemKey]*plannedItem)
	for i, snap := range snapshots {
		if !winners[i] {
			continue
		}
		pm := byKey[menuKey{
			date:     strings.TrimSpace(snap.Date),
			mealKey:  model.NormalizeKey(snap.MealName),
			campusID: snap.CampusID,
		}]

		onMenu := make(map[itemKey]bool, len(snap.Items))
		for _, it := range snap.Items {
			value := strings.TrimSpace(it.Value)
			if value == "" {
				continue
			}
			category := model.CategoryName(it.Category)
			ik := itemKey{nameKey: model.NormalizeKey(value), categoryKey: model.NormalizeKey(category)}

			pi, ok := items[ik]
			if !ok {
				pi = &plannedItem{key: ik, category: category}
				items[ik] = pi
				plan.items = append(plan.items, pi)
				plan.categories = append(plan.categories, category)
			}
			pi.value = value
			pi.tags = model.JoinTags(it.Tags)

			if !onMenu[ik] {
				onMenu[ik] = true
				pm.items = append(pm.items, ik)
			}
		}
	}

	for _, pi := range plan.items {
		plan.itemNames = append(plan.itemNames, pi.value)
	}

	return plan, nil
}

func (r *menuRepository) UpsertMenus(ctx context.Context, snapshots []model.MenuSnapshot) (*IngestResult, error) {
	result := &IngestResult{Snapshots: len(snapshots)}
	if len(snapshots) == 0 {
		return result, nil
	}

	plan, err := planIngest(snapshots)
	if err != nil {
		return nil, err
	}

	logger.Debug("Upserting menus in database", map[string]interface{}{
		"snapshots": len(snapshots),
		"menus":     len(plan.menus),
		"items":     len(plan.items),
	})

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.refs.EnsureCampuses(ctx, tx, plan.campusIDs); err != nil {
			return err
		}
		meals, err := r.refs.ResolveMeals(ctx, tx, plan.meals)
		if err != nil {
			return err
		}
		categories, err := r.refs.ResolveCategories(ctx, tx, plan.categories)
		if err != nil {
			return err
		}
		buckets, err := r.refs.ResolveItemRatings(ctx, tx, plan.itemNames)
		if err != nil {
			return err
		}

		itemIDs, err := r.upsertItems(tx, plan.items, categories, buckets, result)
		if err != nil {
			return err
		}

		menuIDs, err := r.upsertMenuRows(tx, plan.menus, meals, result)
		if err != nil {
			return err
		}

		return r.replaceMappings(tx, plan.menus, menuIDs, itemIDs, result)
	})
	if err != nil {
		logger.Error("Failed to upsert menus in database", err, map[string]interface{}{
			"snapshots": len(snapshots),
		})
		return nil, err
	}

	result.Menus = len(plan.menus)
	result.Items = len(plan.items)

	logger.Debug("Menus upserted in database", map[string]interface{}{
		"menus":         result.Menus,
		"menus_created": result.MenusCreated,
		"items_created": result.ItemsCreated,
		"items_updated": result.ItemsUpdated,
		"mappings":      result.Mappings,
	})
	return result, nil
}

// upsertItems resolves every planned item to a MenuItem row id, creating
// rows that are missing and refreshing tags and bucket links on the rest.
func (r *menuRepository) upsertItems(
	tx *gorm.DB,
	planned []*plannedItem,
	categories map[string]*model.Category,
	buckets map[string]*model.ItemRating,
	result *IngestResult,
) (map[itemKey]uint, error) {
	type rowKey struct {
		nameKey    string
		categoryID uint
	}

	wanted := make(map[rowKey]*plannedItem, len(planned))
	nameKeys := make([]string, 0, len(planned))
	nameSeen := make(map[string]bool, len(planned))
	for _, pi := range planned {
		category, ok := categories[pi.key.categoryKey]
		if !ok {
			return nil, fmt.Errorf("category %q was not resolved", pi.category)
		}
		wanted[rowKey{nameKey: pi.key.nameKey, categoryID: category.ID}] = pi
		if !nameSeen[pi.key.nameKey] {
			nameSeen[pi.key.nameKey] = true
			nameKeys = append(nameKeys, pi.key.nameKey)
		}
	}

	existing := make(map[rowKey]*model.MenuItem, len(planned))
	load := func(keys []string) error {
		for _, part := range chunk(keys, r.chunkSize) {
			var rows []model.MenuItem
			if err := tx.Where("name_key IN ?", part).Find(&rows).Error; err != nil {
				return err
			}
			for i := range rows {
				k := rowKey{nameKey: rows[i].NameKey, categoryID: rows[i].CategoryID}
				if _, ok := wanted[k]; ok {
					existing[k] = &rows[i]
				}
			}
		}
		return nil
	}
	if err := load(nameKeys); err != nil {
		return nil, err
	}

	var missing []model.MenuItem
	missingNames := make(map[string]bool)
	var missingKeys []string
	for _, pi := range planned {
		category := categories[pi.key.categoryKey]
		k := rowKey{nameKey: pi.key.nameKey, categoryID: category.ID}
		row, ok := existing[k]
		bucket := buckets[pi.key.nameKey]
		if bucket == nil {
			return nil, fmt.Errorf("rating bucket for %q was not resolved", pi.value)
		}
		if !ok {
			bucketID := bucket.ID
			missing = append(missing, model.MenuItem{
				Value:        pi.value,
				NameKey:      pi.key.nameKey,
				Tags:         pi.tags,
				CategoryID:   category.ID,
				ItemRatingID: &bucketID,
			})
			if !missingNames[pi.key.nameKey] {
				missingNames[pi.key.nameKey] = true
				missingKeys = append(missingKeys, pi.key.nameKey)
			}
			continue
		}

		updates := map[string]interface{}{}
		if row.Value != pi.value {
			updates["value"] = pi.value
		}
		if row.Tags != pi.tags {
			updates["tags"] = pi.tags
		}
		if row.ItemRatingID == nil {
			updates["item_rating_id"] = bucket.ID
		}
		if len(updates) == 0 {
			continue
		}
		if err := tx.Model(&model.MenuItem{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
		result.ItemsUpdated++
	}

	if err := renameBuckets(tx, planned, buckets); err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(&missing, insertBatchSize)
		if created.Error != nil {
			return nil, created.Error
		}
		result.ItemsCreated = int(created.RowsAffected)
		if err := load(missingKeys); err != nil {
			return nil, err
		}
	}

	ids := make(map[itemKey]uint, len(planned))
	for k, pi := range wanted {
		row, ok := existing[k]
		if !ok {
			return nil, fmt.Errorf("menu item %q missing after insert", pi.value)
		}
		ids[pi.key] = row.ID
	}
	return ids, nil
}

// renameBuckets carries the latest spelling of each item onto its rating
// bucket.
func renameBuckets(tx *gorm.DB, planned []*plannedItem, buckets map[string]*model.ItemRating) error {
	for _, pi := range planned {
		bucket := buckets[pi.key.nameKey]
		if bucket == nil || bucket.Value == pi.value {
			continue
		}
		if err := tx.Model(&model.ItemRating{}).
			Where("id = ?", bucket.ID).
			Update("value", pi.value).Error; err != nil {
			return err
		}
		bucket.Value = pi.value
	}
	return nil
}

// upsertMenuRows finds or creates the Menu row for every planned menu.
func (r *menuRepository) upsertMenuRows(
	tx *gorm.DB,
	planned []*plannedMenu,
	meals map[string]*model.Meal,
	result *IngestResult,
) (map[menuKey]uint, error) {
	type rowKey struct {
		date     string
		mealID   uint
		campusID uint
	}

	wanted := make(map[rowKey]menuKey, len(planned))
	dates := make([]string, 0, len(planned))
	dateSeen := make(map[string]bool, len(planned))
	for _, pm := range planned {
		meal, ok := meals[pm.key.mealKey]
		if !ok {
			return nil, fmt.Errorf("meal %q was not resolved", pm.mealName)
		}
		wanted[rowKey{date: pm.date, mealID: meal.ID, campusID: pm.campusID}] = pm.key
		if !dateSeen[pm.date] {
			dateSeen[pm.date] = true
			dates = append(dates, pm.date)
		}
	}

	ids := make(map[menuKey]uint, len(planned))
	load := func() error {
		for _, part := range chunk(dates, r.chunkSize) {
			var rows []model.Menu
			if err := tx.Where("date IN ?", part).Find(&rows).Error; err != nil {
				return err
			}
			for _, row := range rows {
				if key, ok := wanted[rowKey{date: row.Date, mealID: row.MealID, campusID: row.CampusID}]; ok {
					ids[key] = row.ID
				}
			}
		}
		return nil
	}
	if err := load(); err != nil {
		return nil, err
	}

	var missing []model.Menu
	for _, pm := range planned {
		if _, ok := ids[pm.key]; ok {
			continue
		}
		missing = append(missing, model.Menu{
			Date:     pm.date,
			MealID:   meals[pm.key.mealKey].ID,
			CampusID: pm.campusID,
		})
	}
	if len(missing) == 0 {
		return ids, nil
	}

	created := tx.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&missing, insertBatchSize)
	if created.Error != nil {
		return nil, created.Error
	}
	result.MenusCreated = int(created.RowsAffected)
	if err := load(); err != nil {
		return nil, err
	}
	for _, pm := range planned {
		if _, ok := ids[pm.key]; !ok {
			return nil, fmt.Errorf("menu %s/%s/%d missing after insert", pm.date, pm.mealName, pm.campusID)
		}
	}
	return ids, nil
}

// replaceMappings deletes each menu's mapping set and writes the new one.
func (r *menuRepository) replaceMappings(
	tx *gorm.DB,
	planned []*plannedMenu,
	menuIDs map[menuKey]uint,
	itemIDs map[itemKey]uint,
	result *IngestResult,
) error {
	ids := make([]uint, 0, len(planned))
	for _, pm := range planned {
		ids = append(ids, menuIDs[pm.key])
	}
	for _, part := range chunk(ids, r.chunkSize) {
		if err := tx.Where("menu_id IN ?", part).Delete(&model.MenuMapping{}).Error; err != nil {
			return err
		}
	}

	var mappings []model.MenuMapping
	for _, pm := range planned {
		menuID := menuIDs[pm.key]
		for _, ik := range pm.items {
			mappings = append(mappings, model.MenuMapping{MenuID: menuID, MenuItemID: itemIDs[ik]})
		}
	}
	if len(mappings) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&mappings, insertBatchSize).Error; err != nil {
		return err
	}
	result.Mappings = len(mappings)
	return nil
}

func (r *menuRepository) UpsertFilters(ctx context.Context, campuses map[uint]string, meals []string) error {
	logger.Debug("Upserting menu filters in database", map[string]interface{}{
		"campuses": len(campuses),
		"meals":    len(meals),
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.refs.UpsertCampuses(ctx, tx, campuses); err != nil {
			return err
		}
		resolved, err := r.refs.ResolveMeals(ctx, tx, meals)
		if err != nil {
			return err
		}
		return r.refs.EnableMeals(ctx, tx, resolved)
	})
	if err != nil {
		logger.Error("Failed to upsert menu filters in database", err, map[string]interface{}{
			"campuses": len(campuses),
			"meals":    len(meals),
		})
		return err
	}
	return nil
}
