package dto

import (
	"time"

	"gorm.io/datatypes"
)

type SyncRequest struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
}

// SyncResult is the outcome of one sync pass for a (user, workflow) pair.
// SyncedCount counts newly mirrored executions only; updates to already
// mirrored rows are not counted.
type SyncResult struct {
	Success     bool   `json:"success"`
	SyncedCount int    `json:"synced_count"`
	Message     string `json:"message"`
}

// TenantSyncResult is one entry of a multi-tenant batch pass.
type TenantSyncResult struct {
	UserID      string `json:"user_id"`
	WorkflowID  string `json:"workflow_id"`
	Success     bool   `json:"success"`
	SyncedCount int    `json:"synced_count"`
	Message     string `json:"message,omitempty"`
}

type SyncResponseData struct {
	WorkflowID string    `json:"workflow_id"`
	UserID     string    `json:"user_id"`
	Synced     int       `json:"synced"`
	Timestamp  time.Time `json:"timestamp"`
}

type SyncAllResponseData struct {
	Results   []TenantSyncResult `json:"results"`
	Timestamp time.Time          `json:"timestamp"`
}

type UpsertConfigRequest struct {
	UserID        string         `json:"user_id" validate:"required"`
	WorkflowID    string         `json:"workflow_id" validate:"required"`
	WorkflowName  string         `json:"workflow_name"`
	IsActive      *bool          `json:"is_active"`
	SyncEnabled   *bool          `json:"sync_enabled"`
	SyncFrequency *int           `json:"sync_frequency"`
	Config        datatypes.JSON `json:"config"`
}

type ToggleWorkflowRequest struct {
	Active *bool `json:"active" validate:"required"`
}
