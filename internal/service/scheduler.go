package service

import (
	"blok-sync/config"
	"blok-sync/internal/dto"
	"blok-sync/pkg/lock"
	"blok-sync/pkg/logger"
	"blok-sync/pkg/utils"
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
)

const scheduledPassKey = "scheduled_sync_pass"

// SchedulerService drives the periodic multi-tenant sync. It is an explicit
// dependency owned by the composition root; callers decide when it starts
// and stops, nothing auto-starts on package load.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	ForceSync(ctx context.Context) []dto.TenantSyncResult
}

type schedulerService struct {
	cfg         *config.Config
	log         *logger.Logger
	syncService SyncService
	passGuard   *lock.KeyedLock

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewSchedulerService(cfg *config.Config, log *logger.Logger, syncService SyncService) SchedulerService {
	return &schedulerService{
		cfg:         cfg,
		log:         log,
		syncService: syncService,
		passGuard:   lock.NewKeyedLock(),
	}
}

// Start schedules a sync pass every configured interval and fires one pass
// immediately. Starting an already-running scheduler logs and returns nil.
func (s *schedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("Scheduler already running, ignoring start")
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Scheduler.Interval)
	if _, err := c.AddFunc(spec, func() {
		s.runPass(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sync pass: %w", err)
	}

	s.cron = c
	s.running = true
	c.Start()

	s.log.Info("Scheduler started",
		logger.Field("interval", s.cfg.Scheduler.Interval),
		logger.Field("tenant_delay", s.cfg.Scheduler.TenantDelay),
	)

	// First pass fires right away instead of waiting a full interval.
	utils.GoSafe(func() {
		s.runPass(ctx)
	})

	return nil
}

func (s *schedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runPass executes one multi-tenant batch under the pass guard: if the
// previous pass is still running when the timer fires again, the new firing
// is skipped, never queued.
func (s *schedulerService) runPass(ctx context.Context) {
	if !s.passGuard.TryAcquire(scheduledPassKey) {
		s.log.Warn("Previous scheduled sync pass still running, skipping this firing")
		return
	}
	defer s.passGuard.Release(scheduledPassKey)

	passCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	results := s.syncService.SyncAll(passCtx)

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	s.log.Info("Scheduled sync pass completed",
		logger.IntField("pairs", len(results)),
		logger.IntField("succeeded", succeeded),
		logger.IntField("failed", len(results)-succeeded),
	)
}

// ForceSync runs one batch on demand with the same timeout as a scheduled
// pass and hands the per-tenant results back to the caller.
func (s *schedulerService) ForceSync(ctx context.Context) []dto.TenantSyncResult {
	passCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	return s.syncService.SyncAll(passCtx)
}
