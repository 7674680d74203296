package service

import (
	"blok-sync/config"
	"blok-sync/internal/model"
	"blok-sync/internal/repository"
	"blok-sync/pkg/logger"
	"blok-sync/pkg/utils"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// metricsWindowDays is the trailing window every aggregation covers.
const metricsWindowDays = 30

type MetricsService interface {
	CalculateMetrics(ctx context.Context, workflowID, userID string) error
}

type metricsService struct {
	cfg           *config.Config
	log           *logger.Logger
	executionRepo repository.WorkflowExecutionRepository
	metricRepo    repository.WorkflowMetricRepository
	now           func() time.Time
}

func NewMetricsService(
	cfg *config.Config,
	log *logger.Logger,
	executionRepo repository.WorkflowExecutionRepository,
	metricRepo repository.WorkflowMetricRepository,
) MetricsService {
	return &metricsService{
		cfg:           cfg,
		log:           log,
		executionRepo: executionRepo,
		metricRepo:    metricRepo,
		now:           utils.TimeNowUTC,
	}
}

type successRateValue struct {
	Value      float64 `json:"value"`
	Total      int     `json:"total"`
	Successful int     `json:"successful"`
}

type avgExecutionTimeValue struct {
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Samples int     `json:"samples"`
}

type totalExecutionsValue struct {
	Value int `json:"value"`
}

// CalculateMetrics recomputes the trailing 30-day aggregates for a pair and
// upserts them keyed by period. A window with no executions writes nothing.
// Executions still running (no stop time) are excluded from the duration
// mean entirely, they do not count as zero.
func (m *metricsService) CalculateMetrics(ctx context.Context, workflowID, userID string) error {
	periodEnd := m.now()
	periodStart := periodEnd.AddDate(0, 0, -metricsWindowDays)

	executions, err := m.executionRepo.FindStartedWithin(ctx, userID, workflowID, periodStart, periodEnd)
	if err != nil {
		return fmt.Errorf("failed to load executions for metrics window: %w", err)
	}
	if len(executions) == 0 {
		m.log.DebugContext(ctx, "No executions in metrics window",
			logger.StringField("user_id", userID),
			logger.StringField("workflow_id", workflowID),
		)
		return nil
	}

	total := len(executions)
	successful := 0
	var durationSumMs float64
	durationSamples := 0

	for i := range executions {
		if executions[i].Status == model.ExecutionStatusSuccess {
			successful++
		}
		if executions[i].StoppedAt != nil {
			durationSumMs += float64(executions[i].StoppedAt.Sub(executions[i].StartedAt).Milliseconds())
			durationSamples++
		}
	}

	successRate := math.Round(float64(successful)/float64(total)*100*100) / 100

	avgDurationMs := 0.0
	if durationSamples > 0 {
		avgDurationMs = durationSumMs / float64(durationSamples)
	}

	metrics := []struct {
		name  string
		value interface{}
	}{
		{model.MetricSuccessRate, successRateValue{Value: successRate, Total: total, Successful: successful}},
		{model.MetricAvgExecutionTime, avgExecutionTimeValue{Value: avgDurationMs, Unit: "ms", Samples: durationSamples}},
		{model.MetricTotalExecutions, totalExecutionsValue{Value: total}},
	}

	for _, metric := range metrics {
		value, err := json.Marshal(metric.value)
		if err != nil {
			return fmt.Errorf("failed to marshal metric %s: %w", metric.name, err)
		}
		if err := m.metricRepo.Upsert(ctx, &model.WorkflowMetric{
			UserID:      userID,
			WorkflowID:  workflowID,
			MetricName:  metric.name,
			MetricValue: value,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		}); err != nil {
			return fmt.Errorf("failed to upsert metric %s: %w", metric.name, err)
		}
	}

	m.log.InfoContext(ctx, "Metrics recomputed",
		logger.StringField("user_id", userID),
		logger.StringField("workflow_id", workflowID),
		logger.IntField("total_executions", total),
		logger.Field("success_rate", successRate),
		logger.Field("avg_execution_time_ms", avgDurationMs),
	)
	return nil
}
