package repository

import (
	"blok-sync/internal/model"
	"blok-sync/pkg/utils"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkflowConfigRepository interface {
	Upsert(ctx context.Context, cfg *model.WorkflowConfig, opts ...utils.DBOption) error
	Get(ctx context.Context, param model.GetWorkflowConfigParam, opts ...utils.DBOption) ([]model.WorkflowConfig, error)
	FindByPair(ctx context.Context, userID, workflowID string, opts ...utils.DBOption) (*model.WorkflowConfig, error)
	FindSyncable(ctx context.Context, opts ...utils.DBOption) ([]model.WorkflowConfig, error)
	TouchLastSyncedAt(ctx context.Context, userID, workflowID string, syncedAt time.Time, opts ...utils.DBOption) error
}

type workflowConfigRepository struct {
	db *gorm.DB
}

func NewWorkflowConfigRepository(db *gorm.DB) WorkflowConfigRepository {
	return &workflowConfigRepository{db: db}
}

func (r *workflowConfigRepository) Upsert(ctx context.Context, cfg *model.WorkflowConfig, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "workflow_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"workflow_name", "is_active", "sync_enabled", "sync_frequency", "config", "updated_at",
			}),
		}).
		Create(cfg).Error
}

func (r *workflowConfigRepository) Get(ctx context.Context, param model.GetWorkflowConfigParam, opts ...utils.DBOption) ([]model.WorkflowConfig, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if param.UserID != nil {
		db = db.Where("user_id = ?", *param.UserID)
	}
	if param.WorkflowID != nil {
		db = db.Where("workflow_id = ?", *param.WorkflowID)
	}
	if param.SyncEnabled != nil {
		db = db.Where("sync_enabled = ?", *param.SyncEnabled)
	}

	var configs []model.WorkflowConfig
	if err := db.Order("user_id ASC, workflow_id ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *workflowConfigRepository) FindByPair(ctx context.Context, userID, workflowID string, opts ...utils.DBOption) (*model.WorkflowConfig, error) {
	var cfg model.WorkflowConfig
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ? AND workflow_id = ?", userID, workflowID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// FindSyncable returns every configured pair a scheduled batch should visit:
// sync-enabled rows with a workflow identifier set.
func (r *workflowConfigRepository) FindSyncable(ctx context.Context, opts ...utils.DBOption) ([]model.WorkflowConfig, error) {
	var configs []model.WorkflowConfig
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("sync_enabled = ? AND workflow_id IS NOT NULL AND workflow_id <> ''", true).
		Order("user_id ASC, workflow_id ASC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

// TouchLastSyncedAt records the completion time of a successful pass. The row
// is created if the pair was never explicitly configured.
func (r *workflowConfigRepository) TouchLastSyncedAt(ctx context.Context, userID, workflowID string, syncedAt time.Time, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "workflow_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_synced_at": syncedAt}),
		}).
		Create(&model.WorkflowConfig{
			UserID:       userID,
			WorkflowID:   workflowID,
			SyncEnabled:  true,
			IsActive:     true,
			LastSyncedAt: &syncedAt,
		}).Error
}
