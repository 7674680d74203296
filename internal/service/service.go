package service

import (
	"blok-sync/config"
	"blok-sync/internal/repository"
	"blok-sync/pkg/logger"
)

type Service struct {
	SyncService      SyncService
	MetricsService   MetricsService
	SchedulerService SchedulerService
	WorkflowService  WorkflowService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
) *Service {
	metricsService := NewMetricsService(cfg, log, repo.ExecutionRepo, repo.MetricRepo)
	syncService := NewSyncService(cfg, log, repo, metricsService)
	schedulerService := NewSchedulerService(cfg, log, syncService)
	workflowService := NewWorkflowService(cfg, log, repo.EngineRepo, repo.ConfigRepo)

	return &Service{
		SyncService:      syncService,
		MetricsService:   metricsService,
		SchedulerService: schedulerService,
		WorkflowService:  workflowService,
	}
}
