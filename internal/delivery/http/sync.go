package http

import (
	"blok-sync/internal/dto"
	"blok-sync/pkg/utils"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSync(base *echo.Group) {
	sync := base.Group("/n8n/sync")
	{
		sync.POST("", h.RunSync)
		sync.POST("/all", h.RunSyncAll)
		sync.GET("/status/:workflowId", h.SyncStatus)
	}
}

// RunSync triggers one sync pass for a (user, workflow) pair, followed by a
// metrics pass over the refreshed mirror.
func (h *HttpAPIHandler) RunSync(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.SyncRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result := h.service.SyncService.SyncExecutions(ctx, req.WorkflowID, req.UserID)
	if !result.Success {
		return c.JSON(http.StatusInternalServerError,
			dto.NewBaseResponse(http.StatusInternalServerError, result.Message, nil))
	}

	if err := h.service.MetricsService.CalculateMetrics(ctx, req.WorkflowID, req.UserID); err != nil {
		// The sync itself succeeded; metrics failures are logged, not surfaced.
		c.Logger().Error(err)
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse(result.Message, dto.SyncResponseData{
		WorkflowID: req.WorkflowID,
		UserID:     req.UserID,
		Synced:     result.SyncedCount,
		Timestamp:  utils.TimeNowUTC(),
	}))
}

// RunSyncAll triggers a full multi-tenant batch and reports every pair's outcome.
func (h *HttpAPIHandler) RunSyncAll(c echo.Context) error {
	ctx := c.Request().Context()

	results := h.service.SchedulerService.ForceSync(ctx)

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("sync batch completed", dto.SyncAllResponseData{
		Results:   results,
		Timestamp: utils.TimeNowUTC(),
	}))
}

// SyncStatus returns the stored sync configuration for a pair, including the
// last successful pass timestamp.
func (h *HttpAPIHandler) SyncStatus(c echo.Context) error {
	ctx := c.Request().Context()

	workflowID := c.Param("workflowId")
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("user_id query parameter is required"))
	}

	cfg, err := h.service.WorkflowService.GetSyncStatus(ctx, workflowID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	if cfg == nil {
		return c.JSON(http.StatusNotFound,
			dto.NewBaseResponse(http.StatusNotFound, "no sync configuration for this workflow", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("sync status", cfg))
}
