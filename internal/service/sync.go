package service

import (
	"blok-sync/config"
	"blok-sync/internal/dto"
	"blok-sync/internal/model"
	"blok-sync/internal/repository"
	"blok-sync/pkg/lock"
	"blok-sync/pkg/logger"
	"blok-sync/pkg/utils"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

type SyncService interface {
	SyncExecutions(ctx context.Context, workflowID, userID string) *dto.SyncResult
	SyncAll(ctx context.Context) []dto.TenantSyncResult
}

type syncService struct {
	cfg            *config.Config
	log            *logger.Logger
	engineRepo     repository.EngineRepository
	executionRepo  repository.WorkflowExecutionRepository
	dataRepo       repository.WorkflowDataRepository
	configRepo     repository.WorkflowConfigRepository
	uow            repository.UnitOfWork
	metricsService MetricsService
	pairLocks      *lock.KeyedLock
}

func NewSyncService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	metricsService MetricsService,
) SyncService {
	return &syncService{
		cfg:            cfg,
		log:            log,
		engineRepo:     repo.EngineRepo,
		executionRepo:  repo.ExecutionRepo,
		dataRepo:       repo.WorkflowDataRepo,
		configRepo:     repo.ConfigRepo,
		uow:            repo.UnitOfWork,
		metricsService: metricsService,
		pairLocks:      lock.NewKeyedLock(),
	}
}

func pairKey(userID, workflowID string) string {
	return userID + "/" + workflowID
}

// SyncExecutions runs one sync pass for a (user, workflow) pair: it pulls the
// most recent remote executions, mirrors new ones, refreshes non-terminal
// ones and extracts per-node output fragments. The returned count covers
// newly inserted executions only. If another pass already holds the pair
// lock, the pass is skipped rather than queued.
func (s *syncService) SyncExecutions(ctx context.Context, workflowID, userID string) *dto.SyncResult {
	key := pairKey(userID, workflowID)
	if !s.pairLocks.TryAcquire(key) {
		s.log.WarnContext(ctx, "Sync already in progress for pair, skipping",
			logger.StringField("user_id", userID),
			logger.StringField("workflow_id", workflowID),
		)
		return &dto.SyncResult{Success: false, SyncedCount: 0, Message: "sync already in progress for this workflow"}
	}
	defer s.pairLocks.Release(key)

	cursor, err := s.executionRepo.LatestStartedAt(ctx, userID, workflowID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read sync cursor", logger.ErrorField(err),
			logger.StringField("user_id", userID),
			logger.StringField("workflow_id", workflowID),
		)
		return &dto.SyncResult{Success: false, SyncedCount: 0, Message: err.Error()}
	}
	if cursor != nil {
		s.log.DebugContext(ctx, "Resuming sync after last mirrored execution",
			logger.StringField("workflow_id", workflowID),
			logger.Field("last_started_at", *cursor),
		)
	}

	executions, err := s.engineRepo.ListExecutions(ctx, dto.ListExecutionsParam{
		WorkflowID: workflowID,
		Limit:      s.cfg.Engine.ExecutionPageSize,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list executions from engine", logger.ErrorField(err),
			logger.StringField("workflow_id", workflowID),
		)
		return &dto.SyncResult{Success: false, SyncedCount: 0, Message: err.Error()}
	}

	if len(executions) == 0 {
		return &dto.SyncResult{Success: true, SyncedCount: 0, Message: "no executions found for workflow"}
	}

	syncedCount := 0
	for i := range executions {
		if !utils.ShouldContinue(ctx, s.log) {
			return &dto.SyncResult{Success: false, SyncedCount: 0, Message: ctx.Err().Error()}
		}

		inserted, err := s.mirrorExecution(ctx, workflowID, userID, &executions[i])
		if err != nil {
			s.log.ErrorContext(ctx, "Sync pass aborted", logger.ErrorField(err),
				logger.StringField("user_id", userID),
				logger.StringField("workflow_id", workflowID),
				logger.StringField("execution_id", executions[i].ID),
			)
			return &dto.SyncResult{Success: false, SyncedCount: 0, Message: err.Error()}
		}
		if inserted {
			syncedCount++
		}
	}

	if err := s.configRepo.TouchLastSyncedAt(ctx, userID, workflowID, utils.TimeNowUTC()); err != nil {
		s.log.ErrorContext(ctx, "Failed to update last sync timestamp", logger.ErrorField(err),
			logger.StringField("user_id", userID),
			logger.StringField("workflow_id", workflowID),
		)
		return &dto.SyncResult{Success: false, SyncedCount: 0, Message: err.Error()}
	}

	return &dto.SyncResult{
		Success:     true,
		SyncedCount: syncedCount,
		Message:     fmt.Sprintf("synced %d new executions", syncedCount),
	}
}

// mirrorExecution upserts one remote execution and its node data inside a
// single transaction, so a crash can never leave node data without its
// parent row. Returns whether a new execution row was inserted.
func (s *syncService) mirrorExecution(ctx context.Context, workflowID, userID string, remote *dto.EngineExecution) (bool, error) {
	// The detail fetch and the node type lookup are independent engine
	// calls, so they run in parallel.
	var (
		detail    *dto.ExecutionDetail
		nodeTypes map[string]string
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.engineRepo.GetExecution(gCtx, remote.ID, true)
		if err != nil {
			return fmt.Errorf("failed to fetch execution detail: %w", err)
		}
		detail = d
		return nil
	})
	g.Go(func() error {
		nodeTypes = s.lookupNodeTypes(gCtx, workflowID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	inserted := false
	err := s.uow.Run(func(opts ...utils.DBOption) error {
		existing, err := s.executionRepo.FindByExecutionID(ctx, userID, remote.ID, opts...)
		if err != nil {
			return fmt.Errorf("failed to look up mirrored execution: %w", err)
		}

		var row *model.WorkflowExecution
		if existing == nil {
			row = &model.WorkflowExecution{
				UserID:      userID,
				WorkflowID:  workflowID,
				ExecutionID: remote.ID,
				Status:      model.ExecutionStatus(remote.Status),
				Mode:        remote.Mode,
				StartedAt:   remote.StartedAt,
				StoppedAt:   remote.StoppedAt,
				Finished:    remote.Finished,
				Data:        detail.RawData(),
				RetryOf:     remote.RetryOf,
				WaitTill:    remote.WaitTill,
			}
			if err := s.executionRepo.Create(ctx, row, opts...); err != nil {
				return fmt.Errorf("failed to insert execution: %w", err)
			}
			inserted = true
		} else {
			existing.Status = model.ExecutionStatus(remote.Status)
			existing.StoppedAt = remote.StoppedAt
			existing.Finished = remote.Finished
			existing.Data = detail.RawData()
			existing.WaitTill = remote.WaitTill
			if err := s.executionRepo.Update(ctx, existing, opts...); err != nil {
				return fmt.Errorf("failed to update execution: %w", err)
			}
			row = existing
		}

		records := extractNodeData(row, detail, nodeTypes)
		if err := s.dataRepo.CreateBatch(ctx, records, opts...); err != nil {
			return fmt.Errorf("failed to insert node data: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// lookupNodeTypes resolves node name to node type from the workflow
// definition. The lookup is best-effort: if the engine call fails, every
// node is recorded with type "unknown".
func (s *syncService) lookupNodeTypes(ctx context.Context, workflowID string) map[string]string {
	workflow, err := s.engineRepo.GetWorkflow(ctx, workflowID)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to resolve node types, recording as unknown",
			logger.ErrorField(err),
			logger.StringField("workflow_id", workflowID),
		)
		return nil
	}

	types := make(map[string]string, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		types[node.Name] = node.Type
	}
	return types
}

// extractNodeData turns the detailed payload's run data into node-data
// records. A detail without result data (e.g. a still-running execution)
// yields nothing; that is expected, not an error.
func extractNodeData(row *model.WorkflowExecution, detail *dto.ExecutionDetail, nodeTypes map[string]string) []model.WorkflowData {
	if detail.Data == nil || detail.Data.ResultData == nil {
		return nil
	}

	var records []model.WorkflowData
	for nodeName, runs := range detail.Data.ResultData.RunData {
		nodeType := nodeTypes[nodeName]
		if nodeType == "" {
			nodeType = model.NodeTypeUnknown
		}
		for runIndex, run := range runs {
			records = append(records, model.WorkflowData{
				ExecutionRef:    row.ID,
				UserID:          row.UserID,
				WorkflowID:      row.WorkflowID,
				DataType:        model.DataTypeOutput,
				NodeName:        nodeName,
				NodeType:        nodeType,
				RunIndex:        runIndex,
				Data:            datatypes.JSON(run.Data),
				ExecutionTimeMs: run.ExecutionTime,
			})
		}
	}
	return records
}

// SyncAll visits every syncable (user, workflow) pair sequentially: sync
// pass, then metrics, then a fixed delay before the next pair. One pair's
// failure never stops the batch; each outcome is returned to the caller.
func (s *syncService) SyncAll(ctx context.Context) []dto.TenantSyncResult {
	configs, err := s.configRepo.FindSyncable(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load syncable workflow configs", logger.ErrorField(err))
		return nil
	}

	if len(configs) == 0 {
		s.log.InfoContext(ctx, "No workflow configs to sync")
		return nil
	}

	s.log.InfoContext(ctx, "Starting multi-tenant sync batch",
		logger.IntField("pair_count", len(configs)),
	)

	results := make([]dto.TenantSyncResult, 0, len(configs))
	for i, cfg := range configs {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}

		result := s.SyncExecutions(ctx, cfg.WorkflowID, cfg.UserID)
		if result.Success {
			if err := s.metricsService.CalculateMetrics(ctx, cfg.WorkflowID, cfg.UserID); err != nil {
				s.log.ErrorContext(ctx, "Failed to calculate metrics", logger.ErrorField(err),
					logger.StringField("user_id", cfg.UserID),
					logger.StringField("workflow_id", cfg.WorkflowID),
				)
			}
		} else {
			s.log.ErrorContext(ctx, "Tenant sync failed",
				logger.StringField("user_id", cfg.UserID),
				logger.StringField("workflow_id", cfg.WorkflowID),
				logger.StringField("message", result.Message),
			)
		}

		results = append(results, dto.TenantSyncResult{
			UserID:      cfg.UserID,
			WorkflowID:  cfg.WorkflowID,
			Success:     result.Success,
			SyncedCount: result.SyncedCount,
			Message:     result.Message,
		})

		if i < len(configs)-1 {
			if err := utils.SleepContext(ctx, s.cfg.Scheduler.TenantDelay); err != nil {
				break
			}
		}
	}

	s.log.InfoContext(ctx, "Multi-tenant sync batch finished",
		logger.IntField("pair_count", len(configs)),
		logger.IntField("result_count", len(results)),
	)
	return results
}
