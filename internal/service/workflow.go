package service

import (
	"blok-sync/config"
	"blok-sync/internal/dto"
	"blok-sync/internal/model"
	"blok-sync/internal/repository"
	"blok-sync/pkg/logger"
	"context"
	"fmt"
)

// WorkflowService covers the admin side of the sync surface: engine
// passthrough operations and (user, workflow) sync configuration.
type WorkflowService interface {
	ListWorkflows(ctx context.Context) ([]dto.EngineWorkflow, error)
	ToggleWorkflow(ctx context.Context, workflowID string, active bool) (*dto.EngineWorkflow, error)
	StopExecution(ctx context.Context, executionID string) (*dto.EngineExecution, error)
	UpsertConfig(ctx context.Context, req dto.UpsertConfigRequest) (*model.WorkflowConfig, error)
	GetSyncStatus(ctx context.Context, workflowID, userID string) (*model.WorkflowConfig, error)
}

type workflowService struct {
	cfg        *config.Config
	log        *logger.Logger
	engineRepo repository.EngineRepository
	configRepo repository.WorkflowConfigRepository
}

func NewWorkflowService(cfg *config.Config, log *logger.Logger, engineRepo repository.EngineRepository, configRepo repository.WorkflowConfigRepository) WorkflowService {
	return &workflowService{
		cfg:        cfg,
		log:        log,
		engineRepo: engineRepo,
		configRepo: configRepo,
	}
}

func (w *workflowService) ListWorkflows(ctx context.Context) ([]dto.EngineWorkflow, error) {
	return w.engineRepo.ListWorkflows(ctx)
}

func (w *workflowService) ToggleWorkflow(ctx context.Context, workflowID string, active bool) (*dto.EngineWorkflow, error) {
	workflow, err := w.engineRepo.SetWorkflowActive(ctx, workflowID, active)
	if err != nil {
		return nil, err
	}
	w.log.InfoContext(ctx, "Workflow toggled on engine",
		logger.StringField("workflow_id", workflowID),
		logger.Field("active", active),
	)
	return workflow, nil
}

func (w *workflowService) StopExecution(ctx context.Context, executionID string) (*dto.EngineExecution, error) {
	return w.engineRepo.StopExecution(ctx, executionID)
}

func (w *workflowService) UpsertConfig(ctx context.Context, req dto.UpsertConfigRequest) (*model.WorkflowConfig, error) {
	cfg := &model.WorkflowConfig{
		UserID:        req.UserID,
		WorkflowID:    req.WorkflowID,
		WorkflowName:  req.WorkflowName,
		IsActive:      true,
		SyncEnabled:   true,
		SyncFrequency: 300,
		Config:        req.Config,
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.SyncEnabled != nil {
		cfg.SyncEnabled = *req.SyncEnabled
	}
	if req.SyncFrequency != nil {
		cfg.SyncFrequency = *req.SyncFrequency
	}

	if err := w.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to upsert workflow config: %w", err)
	}
	return cfg, nil
}

func (w *workflowService) GetSyncStatus(ctx context.Context, workflowID, userID string) (*model.WorkflowConfig, error) {
	cfg, err := w.configRepo.FindByPair(ctx, userID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow config: %w", err)
	}
	return cfg, nil
}
