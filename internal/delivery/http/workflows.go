package http

import (
	"blok-sync/internal/dto"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupWorkflows(base *echo.Group) {
	n8n := base.Group("/n8n")
	{
		n8n.GET("/workflows", h.ListWorkflows)
		n8n.POST("/workflows/:id/toggle", h.ToggleWorkflow)
		n8n.POST("/executions/:id/stop", h.StopExecution)
		n8n.POST("/configs", h.UpsertConfig)
	}
}

func (h *HttpAPIHandler) ListWorkflows(c echo.Context) error {
	ctx := c.Request().Context()

	workflows, err := h.service.WorkflowService.ListWorkflows(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("workflows", workflows))
}

func (h *HttpAPIHandler) ToggleWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.ToggleWorkflowRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	workflow, err := h.service.WorkflowService.ToggleWorkflow(ctx, c.Param("id"), *req.Active)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("workflow updated", workflow))
}

func (h *HttpAPIHandler) StopExecution(c echo.Context) error {
	ctx := c.Request().Context()

	execution, err := h.service.WorkflowService.StopExecution(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("execution stopped", execution))
}

func (h *HttpAPIHandler) UpsertConfig(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.UpsertConfigRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	cfg, err := h.service.WorkflowService.UpsertConfig(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("workflow config saved", cfg))
}
