package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	"github.com/whatthedob/whatthedob-backend/internal/db"
	"gorm.io/gorm"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	deletes []string
	failGet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return false, errors.New("cache down")
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deletes = append(c.deletes, key)
	}
	return nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []interface{}
}

func (b *fakeBroadcaster) Publish(event interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type serviceFixture struct {
	db          *gorm.DB
	menus       MenuService
	ratings     RatingService
	cache       *fakeCache
	broadcaster *fakeBroadcaster
}

func setupServiceTest(t *testing.T) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	refs := repository.NewReferenceRepository(testDB)
	cache := newFakeCache()
	broadcaster := &fakeBroadcaster{}

	return &serviceFixture{
		db: testDB,
		menus: NewMenuService(
			repository.NewMenuRepository(testDB, refs),
			repository.NewMenuQueryRepository(testDB),
			cache,
			time.Minute,
		),
		ratings:     NewRatingService(repository.NewRatingRepository(testDB), broadcaster),
		cache:       cache,
		broadcaster: broadcaster,
	}
}

func pastaSnapshot() model.MenuSnapshot {
	return model.MenuSnapshot{
		Date:     "01/01/25",
		CampusID: 46,
		MealName: "Lunch",
		Items: []model.SnapshotItem{
			{Value: "Pasta", Tags: []string{"Vegan"}, Category: "Entree"},
		},
	}
}

func mealID(t *testing.T, s MenuService, name string) uint {
	meals, err := s.GetMeals(context.Background())
	require.NoError(t, err)
	for _, meal := range meals {
		if meal.Name == name {
			return meal.ID
		}
	}
	t.Fatalf("meal %q not found", name)
	return 0
}

func countRows(t *testing.T, gdb *gorm.DB, value interface{}) int64 {
	var n int64
	require.NoError(t, gdb.Model(value).Count(&n).Error)
	return n
}
