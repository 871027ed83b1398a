package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultLookupChunkSize keeps IN (...) lists well under the bind
	// parameter ceiling of both postgres (65535) and sqlite (32766).
	DefaultLookupChunkSize = 2000

	insertBatchSize = 500
)

// ReferenceRepository resolves the shared entities menus point at,
// creating the ones that do not exist yet. Every method accepts an
// optional transaction; a nil tx runs against the base connection.
//
// Resolution never cleans up after itself: the caller's transaction owns
// atomicity.
type ReferenceRepository interface {
	UpsertCampuses(ctx context.Context, tx *gorm.DB, campuses map[uint]string) error
	EnsureCampuses(ctx context.Context, tx *gorm.DB, ids []uint) error
	ResolveMeals(ctx context.Context, tx *gorm.DB, names []string) (map[string]*model.Meal, error)
	EnableMeals(ctx context.Context, tx *gorm.DB, meals map[string]*model.Meal) error
	ResolveCategories(ctx context.Context, tx *gorm.DB, names []string) (map[string]*model.Category, error)
	ResolveItemRatings(ctx context.Context, tx *gorm.DB, names []string) (map[string]*model.ItemRating, error)
}

type referenceRepository struct {
	db        *gorm.DB
	chunkSize int
}

func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return NewReferenceRepositoryWithChunkSize(db, DefaultLookupChunkSize)
}

// NewReferenceRepositoryWithChunkSize overrides the lookup chunk size.
func NewReferenceRepositoryWithChunkSize(db *gorm.DB, chunkSize int) ReferenceRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultLookupChunkSize
	}
	return &referenceRepository{db: db, chunkSize: chunkSize}
}

func (r *referenceRepository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx)
}

func (r *referenceRepository) UpsertCampuses(ctx context.Context, tx *gorm.DB, campuses map[uint]string) error {
	if len(campuses) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(campuses))
	for id := range campuses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]model.Campus, 0, len(ids))
	for _, id := range ids {
		name := strings.TrimSpace(campuses[id])
		if name == "" {
			name = placeholderCampusName(id)
		}
		rows = append(rows, model.Campus{ID: id, Name: name})
	}

	logger.Debug("Upserting campuses in database", map[string]interface{}{
		"count": len(rows),
	})

	updates := append(clause.AssignmentColumns([]string{"name", "updated_at"}),
		clause.Assignments(map[string]interface{}{"disabled": false})...)
	if err := r.conn(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: updates,
		}).
		CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		logger.Error("Failed to upsert campuses in database", err, map[string]interface{}{
			"count": len(rows),
		})
		return err
	}
	return nil
}

// EnsureCampuses inserts placeholder rows for campus ids that have never
// been seeded. Existing rows are left untouched.
func (r *referenceRepository) EnsureCampuses(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[uint]bool, len(ids))
	rows := make([]model.Campus, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, model.Campus{ID: id, Name: placeholderCampusName(id)})
	}

	if err := r.conn(ctx, tx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		logger.Error("Failed to ensure campuses in database", err, map[string]interface{}{
			"count": len(rows),
		})
		return err
	}
	return nil
}

func (r *referenceRepository) ResolveMeals(ctx context.Context, tx *gorm.DB, names []string) (map[string]*model.Meal, error) {
	return resolveByKey(r.conn(ctx, tx), r.chunkSize, "meals", distinctNames(names, strings.TrimSpace),
		func(m *model.Meal) string { return m.NameKey },
		func(n namedKey) model.Meal { return model.Meal{Name: n.name, NameKey: n.key} },
	)
}

// EnableMeals clears the disabled flag on resolved meals.
func (r *referenceRepository) EnableMeals(ctx context.Context, tx *gorm.DB, meals map[string]*model.Meal) error {
	if len(meals) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(meals))
	for _, meal := range meals {
		if meal.Disabled {
			ids = append(ids, meal.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	for _, part := range chunk(ids, r.chunkSize) {
		if err := r.conn(ctx, tx).Model(&model.Meal{}).
			Where("id IN ?", part).
			Update("disabled", false).Error; err != nil {
			logger.Error("Failed to enable meals in database", err, map[string]interface{}{
				"count": len(part),
			})
			return err
		}
	}
	for _, meal := range meals {
		meal.Disabled = false
	}
	return nil
}

func (r *referenceRepository) ResolveCategories(ctx context.Context, tx *gorm.DB, names []string) (map[string]*model.Category, error) {
	return resolveByKey(r.conn(ctx, tx), r.chunkSize, "categories", distinctNames(names, model.CategoryName),
		func(c *model.Category) string { return c.NameKey },
		func(n namedKey) model.Category { return model.Category{Name: n.name, NameKey: n.key} },
	)
}

func (r *referenceRepository) ResolveItemRatings(ctx context.Context, tx *gorm.DB, names []string) (map[string]*model.ItemRating, error) {
	return resolveByKey(r.conn(ctx, tx), r.chunkSize, "item_ratings", distinctNames(names, strings.TrimSpace),
		func(b *model.ItemRating) string { return b.NameKey },
		func(n namedKey) model.ItemRating { return model.ItemRating{Value: n.name, NameKey: n.key} },
	)
}

type namedKey struct {
	name string
	key  string
}

// distinctNames cleans names and drops duplicates by normalized key,
// keeping the first spelling seen. Names that clean to "" are skipped.
func distinctNames(names []string, clean func(string) string) []namedKey {
	seen := make(map[string]bool, len(names))
	out := make([]namedKey, 0, len(names))
	for _, raw := range names {
		name := clean(raw)
		if name == "" {
			continue
		}
		key := model.NormalizeKey(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, namedKey{name: name, key: key})
	}
	return out
}

// resolveByKey is the find-or-insert shared by every name-keyed entity.
// Lookups run one query per chunk of keys. Inserts use ON CONFLICT DO
// NOTHING so a concurrent writer creating the same key is absorbed, and
// every inserted key is re-read because skipped rows get no id back.
func resolveByKey[T any](
	db *gorm.DB,
	chunkSize int,
	table string,
	wanted []namedKey,
	keyOf func(*T) string,
	build func(namedKey) T,
) (map[string]*T, error) {
	result := make(map[string]*T, len(wanted))
	if len(wanted) == 0 {
		return result, nil
	}

	keys := make([]string, len(wanted))
	for i, w := range wanted {
		keys[i] = w.key
	}

	logger.Debug("Resolving references in database", map[string]interface{}{
		"table":  table,
		"count":  len(keys),
		"chunks": (len(keys) + chunkSize - 1) / chunkSize,
	})

	if err := findByKeys(db, chunkSize, keys, keyOf, result); err != nil {
		logger.Error("Failed to look up references in database", err, map[string]interface{}{
			"table": table,
			"count": len(keys),
		})
		return nil, err
	}

	var missing []T
	var missingKeys []string
	for _, w := range wanted {
		if _, ok := result[w.key]; !ok {
			missing = append(missing, build(w))
			missingKeys = append(missingKeys, w.key)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&missing, insertBatchSize).Error; err != nil {
		logger.Error("Failed to create references in database", err, map[string]interface{}{
			"table": table,
			"count": len(missing),
		})
		return nil, err
	}

	if err := findByKeys(db, chunkSize, missingKeys, keyOf, result); err != nil {
		logger.Error("Failed to re-read created references in database", err, map[string]interface{}{
			"table": table,
			"count": len(missingKeys),
		})
		return nil, err
	}

	for _, key := range missingKeys {
		if _, ok := result[key]; !ok {
			return nil, fmt.Errorf("%s: reference %q missing after insert", table, key)
		}
	}

	logger.Debug("References resolved in database", map[string]interface{}{
		"table":   table,
		"count":   len(result),
		"created": len(missing),
	})
	return result, nil
}

func findByKeys[T any](db *gorm.DB, chunkSize int, keys []string, keyOf func(*T) string, into map[string]*T) error {
	for _, part := range chunk(keys, chunkSize) {
		var rows []T
		if err := db.Where("name_key IN ?", part).Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			row := &rows[i]
			into[keyOf(row)] = row
		}
	}
	return nil
}

func chunk[T any](values []T, size int) [][]T {
	if size <= 0 || len(values) <= size {
		if len(values) == 0 {
			return nil
		}
		return [][]T{values}
	}
	parts := make([][]T, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		parts = append(parts, values[start:end])
	}
	return parts
}

func placeholderCampusName(id uint) string {
	return fmt.Sprintf("Campus %d", id)
}
