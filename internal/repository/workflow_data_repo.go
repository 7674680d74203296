package repository

import (
	"blok-sync/internal/model"
	"blok-sync/pkg/utils"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkflowDataRepository interface {
	CreateBatch(ctx context.Context, records []model.WorkflowData, opts ...utils.DBOption) error
	CountByExecutionRef(ctx context.Context, executionRef uint, opts ...utils.DBOption) (int64, error)
}

type workflowDataRepository struct {
	db *gorm.DB
}

func NewWorkflowDataRepository(db *gorm.DB) WorkflowDataRepository {
	return &workflowDataRepository{db: db}
}

// CreateBatch inserts node-data records, silently skipping rows whose
// (execution_ref, node_name, run_index) fingerprint already exists. This is
// what keeps repeated passes over the same execution idempotent.
func (r *workflowDataRepository) CreateBatch(ctx context.Context, records []model.WorkflowData, opts ...utils.DBOption) error {
	if len(records) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "execution_ref"}, {Name: "node_name"}, {Name: "run_index"}},
			DoNothing: true,
		}).
		Create(&records).Error
}

func (r *workflowDataRepository) CountByExecutionRef(ctx context.Context, executionRef uint, opts ...utils.DBOption) (int64, error) {
	var count int64
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.WorkflowData{}).
		Where("execution_ref = ?", executionRef).
		Count(&count).Error
	return count, err
}
