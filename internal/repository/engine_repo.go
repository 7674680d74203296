package repository

import (
	"blok-sync/config"
	"blok-sync/internal/dto"
	"blok-sync/pkg/cache"
	"blok-sync/pkg/httpclient"
	"blok-sync/pkg/logger"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EngineRepository talks to the external workflow engine's REST API.
type EngineRepository interface {
	ListWorkflows(ctx context.Context) ([]dto.EngineWorkflow, error)
	GetWorkflow(ctx context.Context, workflowID string) (*dto.EngineWorkflow, error)
	SetWorkflowActive(ctx context.Context, workflowID string, active bool) (*dto.EngineWorkflow, error)
	ListExecutions(ctx context.Context, param dto.ListExecutionsParam) ([]dto.EngineExecution, error)
	GetExecution(ctx context.Context, executionID string, includeData bool) (*dto.ExecutionDetail, error)
	StopExecution(ctx context.Context, executionID string) (*dto.EngineExecution, error)
}

type engineRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	cache          cache.Cache
	requestLimiter *rate.Limiter
	mu             sync.Mutex
}

// NewEngineRepository creates a new instance of engineRepository.
func NewEngineRepository(cfg *config.Config, inmemoryCache cache.Cache, log *logger.Logger) EngineRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Engine.MaxRequestPerMin)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &engineRepository{
		httpClient:     httpclient.New(cfg.Engine.BaseURL, cfg.Engine.BaseTimeout, cfg.Engine.APIKeyHeader, cfg.Engine.APIKey),
		cfg:            cfg,
		logger:         log,
		cache:          inmemoryCache,
		requestLimiter: requestLimiter,
		mu:             sync.Mutex{},
	}
}

func (r *engineRepository) waitForSlot(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "Engine API request limit exceeded, waiting",
			logger.IntField("max_request_per_min", r.cfg.Engine.MaxRequestPerMin),
		)
	}
	return r.requestLimiter.Wait(ctx)
}

func (r *engineRepository) checkStatus(ctx context.Context, operation string, resp *httpclient.BaseResponse) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	r.logger.ErrorContext(ctx, "Engine API returned Non-OK status",
		logger.StringField("operation", operation),
		logger.IntField("status_code", resp.StatusCode),
		logger.StringField("body", string(resp.Body)))
	return fmt.Errorf("engine api %s returned status %d: %s", operation, resp.StatusCode, string(resp.Body))
}

func (r *engineRepository) ListWorkflows(ctx context.Context) ([]dto.EngineWorkflow, error) {
	if err := r.waitForSlot(ctx); err != nil {
		return nil, err
	}

	var result struct {
		Data []dto.EngineWorkflow `json:"data"`
	}
	resp, err := r.httpClient.Get(ctx, "/api/v1/workflows", nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows from engine: %w", err)
	}
	if err := r.checkStatus(ctx, "list workflows", resp); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (r *engineRepository) GetWorkflow(ctx context.Context, workflowID string) (*dto.EngineWorkflow, error) {
	cacheKey := fmt.Sprintf("engine:workflow:%s", workflowID)
	if cached, found := r.cache.Get(cacheKey); found {
		if workflow, ok := cached.(*dto.EngineWorkflow); ok {
			return workflow, nil
		}
	}

	if err := r.waitForSlot(ctx); err != nil {
		return nil, err
	}

	var workflow dto.EngineWorkflow
	resp, err := r.httpClient.Get(ctx, "/api/v1/workflows/"+workflowID, nil, nil, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s from engine: %w", workflowID, err)
	}
	if err := r.checkStatus(ctx, "get workflow", resp); err != nil {
		return nil, err
	}
	if workflow.ID == "" {
		return nil, fmt.Errorf("engine returned a workflow without an id for %s", workflowID)
	}

	r.cache.Set(cacheKey, &workflow, r.cfg.Cache.DefaultExpiration)
	return &workflow, nil
}

func (r *engineRepository) SetWorkflowActive(ctx context.Context, workflowID string, active bool) (*dto.EngineWorkflow, error) {
	if err := r.waitForSlot(ctx); err != nil {
		return nil, err
	}

	action := "deactivate"
	if active {
		action = "activate"
	}

	var workflow dto.EngineWorkflow
	resp, err := r.httpClient.Post(ctx, fmt.Sprintf("/api/v1/workflows/%s/%s", workflowID, action), nil, nil, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to %s workflow %s: %w", action, workflowID, err)
	}
	if err := r.checkStatus(ctx, action+" workflow", resp); err != nil {
		return nil, err
	}

	// The toggled workflow replaces whatever we cached for it.
	r.cache.Delete(fmt.Sprintf("engine:workflow:%s", workflowID))
	return &workflow, nil
}

func (r *engineRepository) ListExecutions(ctx context.Context, param dto.ListExecutionsParam) ([]dto.EngineExecution, error) {
	if err := r.waitForSlot(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{}
	if param.WorkflowID != "" {
		queryParams["workflowId"] = param.WorkflowID
	}
	if param.Status != "" {
		queryParams["status"] = param.Status
	}
	if param.Limit > 0 {
		queryParams["limit"] = strconv.Itoa(param.Limit)
	}
	if param.Offset > 0 {
		queryParams["offset"] = strconv.Itoa(param.Offset)
	}

	var result dto.ListExecutionsResponse
	resp, err := r.httpClient.Get(ctx, "/api/v1/executions", queryParams, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions from engine: %w", err)
	}
	if err := r.checkStatus(ctx, "list executions", resp); err != nil {
		return nil, err
	}

	for i := range result.Data {
		if err := result.Data[i].Validate(); err != nil {
			return nil, fmt.Errorf("engine returned an invalid execution: %w", err)
		}
	}
	return result.Data, nil
}

func (r *engineRepository) GetExecution(ctx context.Context, executionID string, includeData bool) (*dto.ExecutionDetail, error) {
	if err := r.waitForSlot(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{}
	if includeData {
		queryParams["includeData"] = "true"
	}

	var detail dto.ExecutionDetail
	resp, err := r.httpClient.Get(ctx, "/api/v1/executions/"+executionID, queryParams, nil, &detail)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s from engine: %w", executionID, err)
	}
	if err := r.checkStatus(ctx, "get execution", resp); err != nil {
		return nil, err
	}
	if err := detail.Validate(); err != nil {
		return nil, fmt.Errorf("engine returned an invalid execution detail: %w", err)
	}
	return &detail, nil
}

func (r *engineRepository) StopExecution(ctx context.Context, executionID string) (*dto.EngineExecution, error) {
	if err := r.waitForSlot(ctx); err != nil {
		return nil, err
	}

	var execution dto.EngineExecution
	resp, err := r.httpClient.Post(ctx, fmt.Sprintf("/api/v1/executions/%s/stop", executionID), nil, nil, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to stop execution %s: %w", executionID, err)
	}
	if err := r.checkStatus(ctx, "stop execution", resp); err != nil {
		return nil, err
	}
	return &execution, nil
}
