package repository

import (
	"blok-sync/internal/model"
	"blok-sync/pkg/utils"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkflowMetricRepository interface {
	Upsert(ctx context.Context, metric *model.WorkflowMetric, opts ...utils.DBOption) error
	FindByPeriod(ctx context.Context, userID, workflowID string, periodStart, periodEnd time.Time, opts ...utils.DBOption) ([]model.WorkflowMetric, error)
}

type workflowMetricRepository struct {
	db *gorm.DB
}

func NewWorkflowMetricRepository(db *gorm.DB) WorkflowMetricRepository {
	return &workflowMetricRepository{db: db}
}

// Upsert writes a metric row keyed by (user, workflow, metric name, period);
// recomputing the same period overwrites the previous value.
func (r *workflowMetricRepository) Upsert(ctx context.Context, metric *model.WorkflowMetric, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "workflow_id"}, {Name: "metric_name"},
				{Name: "period_start"}, {Name: "period_end"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"metric_value", "updated_at"}),
		}).
		Create(metric).Error
}

func (r *workflowMetricRepository) FindByPeriod(ctx context.Context, userID, workflowID string, periodStart, periodEnd time.Time, opts ...utils.DBOption) ([]model.WorkflowMetric, error) {
	var metrics []model.WorkflowMetric
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ? AND workflow_id = ? AND period_start = ? AND period_end = ?", userID, workflowID, periodStart, periodEnd).
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}
