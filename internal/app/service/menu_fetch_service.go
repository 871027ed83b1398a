package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	"github.com/whatthedob/whatthedob-backend/internal/scraper"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 4

// MenuSource loads raw pages from the upstream menu site.
type MenuSource interface {
	FetchFilterPage(ctx context.Context) (string, error)
	FetchMenuPage(ctx context.Context, date, meal string, campusID uint) (string, error)
}

// PageArchive keeps a copy of every fetched menu page.
type PageArchive interface {
	ArchivePage(ctx context.Context, date time.Time, campusID uint, meal, page string) (string, error)
}

// FetchOptions controls which pages a fetch run requests.
type FetchOptions struct {
	DaysToFetch    int
	Meals          []string
	SelectedCampus uint
	Concurrency    int
}

// FetchReport summarizes one fetch run.
type FetchReport struct {
	Dates     []string                 `json:"dates"`
	Attempted int                      `json:"attempted"`
	Fetched   int                      `json:"fetched"`
	Failed    int                      `json:"failed"`
	Result    *repository.IngestResult `json:"result,omitempty"`
}

// MenuFetchService scrapes upstream menus and ingests them.
type MenuFetchService interface {
	// FetchMenus fetches every campus and meal for one day.
	FetchMenus(ctx context.Context, date time.Time) (*FetchReport, error)
	// FetchUpcoming fetches DaysToFetch days starting today.
	FetchUpcoming(ctx context.Context) (*FetchReport, error)
}

type menuFetchService struct {
	source      MenuSource
	menuService MenuService
	archive     PageArchive
	options     FetchOptions
	now         func() time.Time
}

// NewMenuFetchService creates a fetch service. archive may be nil.
func NewMenuFetchService(source MenuSource, menuService MenuService, archive PageArchive, options FetchOptions) MenuFetchService {
	if options.Concurrency <= 0 {
		options.Concurrency = defaultFetchConcurrency
	}
	if options.DaysToFetch <= 0 {
		options.DaysToFetch = 1
	}
	return &menuFetchService{
		source:      source,
		menuService: menuService,
		archive:     archive,
		options:     options,
		now:         time.Now,
	}
}

type pageRequest struct {
	day      time.Time
	date     string
	meal     string
	campusID uint
}

func (s *menuFetchService) FetchMenus(ctx context.Context, date time.Time) (*FetchReport, error) {
	return s.run(ctx, []time.Time{date})
}

func (s *menuFetchService) FetchUpcoming(ctx context.Context) (*FetchReport, error) {
	today := s.now()
	days := make([]time.Time, 0, s.options.DaysToFetch)
	for i := 0; i < s.options.DaysToFetch; i++ {
		days = append(days, today.AddDate(0, 0, i))
	}
	return s.run(ctx, days)
}

func (s *menuFetchService) run(ctx context.Context, days []time.Time) (*FetchReport, error) {
	report := &FetchReport{}
	for _, day := range days {
		report.Dates = append(report.Dates, day.Format(model.DateLayout))
	}

	logger.Info("Starting menu fetch", map[string]interface{}{
		"dates": report.Dates,
	})

	filterPage, err := s.source.FetchFilterPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filter page: %w", err)
	}

	campuses := scraper.ParseCampusOptions(filterPage)
	meals := scraper.ParseMealOptions(filterPage)
	if err := s.menuService.UpsertFilters(ctx, campuses, meals); err != nil {
		return nil, err
	}

	campusIDs := s.selectCampuses(campuses)
	mealNames := s.selectMeals(meals)

	logger.Info("Parsed menu filters", map[string]interface{}{
		"campuses": len(campuses),
		"meals":    len(meals),
		"fetching": len(campusIDs) * len(mealNames) * len(days),
	})

	var requests []pageRequest
	for i, day := range days {
		for _, campusID := range campusIDs {
			for _, meal := range mealNames {
				requests = append(requests, pageRequest{
					day:      day,
					date:     report.Dates[i],
					meal:     meal,
					campusID: campusID,
				})
			}
		}
	}
	report.Attempted = len(requests)

	snapshots := make([]*model.MenuSnapshot, len(requests))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Concurrency)
	for i, req := range requests {
		g.Go(func() error {
			snapshot, err := s.fetchPage(gctx, req)
			if err != nil {
				logger.Error("Failed to fetch menu page", err, map[string]interface{}{
					"date":   req.date,
					"meal":   req.meal,
					"campus": req.campusID,
				})
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			snapshots[i] = snapshot
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := make([]model.MenuSnapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot != nil {
			batch = append(batch, *snapshot)
		}
	}
	report.Fetched = len(batch)

	logger.Info("Fetched menu pages", map[string]interface{}{
		"fetched":   report.Fetched,
		"attempted": report.Attempted,
		"failed":    report.Failed,
	})

	if len(batch) == 0 {
		return report, nil
	}

	result, err := s.menuService.Ingest(ctx, batch)
	if err != nil {
		return nil, err
	}
	report.Result = result
	return report, nil
}

// fetchPage returns nil for a page with no content.
func (s *menuFetchService) fetchPage(ctx context.Context, req pageRequest) (*model.MenuSnapshot, error) {
	page, err := s.source.FetchMenuPage(ctx, req.date, req.meal, req.campusID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page) == "" {
		return nil, nil
	}

	if s.archive != nil {
		if _, err := s.archive.ArchivePage(ctx, req.day, req.campusID, req.meal, page); err != nil {
			logger.Warn("Failed to archive menu page", map[string]interface{}{
				"date":   req.date,
				"meal":   req.meal,
				"campus": req.campusID,
				"error":  err.Error(),
			})
		}
	}

	return &model.MenuSnapshot{
		Date:     req.date,
		CampusID: req.campusID,
		MealName: req.meal,
		Items:    scraper.ParseMenuItems(page),
	}, nil
}

// selectCampuses returns every parsed campus, or the configured one when
// the picker was empty.
func (s *menuFetchService) selectCampuses(parsed map[uint]string) []uint {
	ids := make([]uint, 0, len(parsed))
	for id := range parsed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) == 0 && s.options.SelectedCampus != 0 {
		ids = append(ids, s.options.SelectedCampus)
	}
	return ids
}

// selectMeals keeps parsed meals that are configured, falling back to the
// configured list when none survive.
func (s *menuFetchService) selectMeals(parsed []string) []string {
	configured := make(map[string]bool, len(s.options.Meals))
	for _, meal := range s.options.Meals {
		configured[model.NormalizeKey(meal)] = true
	}

	seen := make(map[string]bool, len(parsed))
	var meals []string
	for _, meal := range parsed {
		key := model.NormalizeKey(meal)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if len(configured) == 0 || configured[key] {
			meals = append(meals, strings.TrimSpace(meal))
		}
	}

	if len(meals) == 0 {
		meals = append(meals, s.options.Meals...)
	}
	return meals
}
