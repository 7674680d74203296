package repository

import (
	"blok-sync/internal/model"
	"blok-sync/pkg/utils"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type WorkflowExecutionRepository interface {
	FindByExecutionID(ctx context.Context, userID, executionID string, opts ...utils.DBOption) (*model.WorkflowExecution, error)
	Create(ctx context.Context, execution *model.WorkflowExecution, opts ...utils.DBOption) error
	Update(ctx context.Context, execution *model.WorkflowExecution, opts ...utils.DBOption) error
	LatestStartedAt(ctx context.Context, userID, workflowID string, opts ...utils.DBOption) (*time.Time, error)
	FindStartedWithin(ctx context.Context, userID, workflowID string, from, to time.Time, opts ...utils.DBOption) ([]model.WorkflowExecution, error)
}

type workflowExecutionRepository struct {
	db *gorm.DB
}

func NewWorkflowExecutionRepository(db *gorm.DB) WorkflowExecutionRepository {
	return &workflowExecutionRepository{db: db}
}

// FindByExecutionID looks up the mirrored row for a remote execution.
// A missing row is (nil, nil), not an error.
func (r *workflowExecutionRepository) FindByExecutionID(ctx context.Context, userID, executionID string, opts ...utils.DBOption) (*model.WorkflowExecution, error) {
	var execution model.WorkflowExecution
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ? AND execution_id = ?", userID, executionID).
		First(&execution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &execution, nil
}

func (r *workflowExecutionRepository) Create(ctx context.Context, execution *model.WorkflowExecution, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(execution).Error
}

func (r *workflowExecutionRepository) Update(ctx context.Context, execution *model.WorkflowExecution, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.WorkflowExecution{}).
		Where("id = ?", execution.ID).
		Updates(map[string]interface{}{
			"status":     execution.Status,
			"stopped_at": execution.StoppedAt,
			"finished":   execution.Finished,
			"data":       execution.Data,
			"wait_till":  execution.WaitTill,
		}).Error
}

// LatestStartedAt returns the start time of the most recently started
// mirrored execution for the pair, or nil when nothing is mirrored yet.
func (r *workflowExecutionRepository) LatestStartedAt(ctx context.Context, userID, workflowID string, opts ...utils.DBOption) (*time.Time, error) {
	var execution model.WorkflowExecution
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ? AND workflow_id = ?", userID, workflowID).
		Order("started_at DESC").
		First(&execution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &execution.StartedAt, nil
}

func (r *workflowExecutionRepository) FindStartedWithin(ctx context.Context, userID, workflowID string, from, to time.Time, opts ...utils.DBOption) ([]model.WorkflowExecution, error) {
	var executions []model.WorkflowExecution
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ? AND workflow_id = ? AND started_at >= ? AND started_at <= ?", userID, workflowID, from, to).
		Order("started_at ASC").
		Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}
