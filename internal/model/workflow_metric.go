package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MetricSuccessRate      = "success_rate"
	MetricAvgExecutionTime = "avg_execution_time"
	MetricTotalExecutions  = "total_executions"
)

// WorkflowMetric is one aggregate statistic for a (user, workflow, metric,
// period) tuple. The tuple is unique; recomputations upsert over it.
type WorkflowMetric struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_metrics_period" json:"user_id"`
	WorkflowID  string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_metrics_period" json:"workflow_id"`
	MetricName  string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_metrics_period" json:"metric_name"`
	MetricValue datatypes.JSON `gorm:"type:jsonb;not null" json:"metric_value"`
	PeriodStart time.Time      `gorm:"not null;uniqueIndex:idx_metrics_period" json:"period_start"`
	PeriodEnd   time.Time      `gorm:"not null;uniqueIndex:idx_metrics_period" json:"period_end"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WorkflowMetric) TableName() string {
	return "workflow_metrics"
}
