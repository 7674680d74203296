package repository

import (
	"blok-sync/config"
	"blok-sync/pkg/cache"
	"blok-sync/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	EngineRepo       EngineRepository
	ExecutionRepo    WorkflowExecutionRepository
	WorkflowDataRepo WorkflowDataRepository
	MetricRepo       WorkflowMetricRepository
	ConfigRepo       WorkflowConfigRepository
	UnitOfWork       UnitOfWork
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	return &Repository{
		EngineRepo:       NewEngineRepository(cfg, inmemoryCache, log),
		ExecutionRepo:    NewWorkflowExecutionRepository(db),
		WorkflowDataRepo: NewWorkflowDataRepository(db),
		MetricRepo:       NewWorkflowMetricRepository(db),
		ConfigRepo:       NewWorkflowConfigRepository(db),
		UnitOfWork:       NewUnitOfWork(db),
	}, nil
}
