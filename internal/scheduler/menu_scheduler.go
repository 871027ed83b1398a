package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
)

const defaultRunTimeout = 30 * time.Minute

// MenuScheduler runs the daily menu fetch.
type MenuScheduler struct {
	cron       *cron.Cron
	fetcher    service.MenuFetchService
	spec       string
	daysOffset int
	runTimeout time.Duration
	now        func() time.Time
}

// NewMenuScheduler creates a scheduler that fetches today+daysOffset on
// every tick of spec.
func NewMenuScheduler(fetcher service.MenuFetchService, spec string, daysOffset int) *MenuScheduler {
	return &MenuScheduler{
		cron:       cron.New(),
		fetcher:    fetcher,
		spec:       spec,
		daysOffset: daysOffset,
		runTimeout: defaultRunTimeout,
		now:        time.Now,
	}
}

// Start registers the job and starts the cron loop.
func (s *MenuScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		logger.Error("Failed to add cron job for menu fetch", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Menu scheduler started", map[string]interface{}{
		"spec":        s.spec,
		"days_offset": s.daysOffset,
	})
	return nil
}

// Stop halts the cron loop and waits for a running fetch to finish.
func (s *MenuScheduler) Stop() {
	logger.Info("Stopping menu scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Menu scheduler stopped", nil)
}

func (s *MenuScheduler) runOnce() {
	date := s.now().AddDate(0, 0, s.daysOffset)
	fields := map[string]interface{}{
		"date":        date.Format(model.DateLayout),
		"days_offset": s.daysOffset,
	}
	logger.Info("Starting scheduled menu fetch", fields)

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	report, err := s.fetcher.FetchMenus(ctx, date)
	if err != nil {
		logger.Error("Scheduled menu fetch failed", err, fields)
		return
	}

	logger.Info("Scheduled menu fetch finished", map[string]interface{}{
		"date":      date.Format(model.DateLayout),
		"attempted": report.Attempted,
		"fetched":   report.Fetched,
		"failed":    report.Failed,
	})
}
