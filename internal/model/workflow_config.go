package model

import (
	"time"

	"gorm.io/datatypes"
)

// WorkflowConfig describes the sync policy for one (user, workflow) pair.
type WorkflowConfig struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_configs_user_workflow" json:"user_id"`
	WorkflowID    string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_configs_user_workflow" json:"workflow_id"`
	WorkflowName  string         `gorm:"type:varchar(255)" json:"workflow_name"`
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`
	SyncEnabled   bool           `gorm:"not null;default:true" json:"sync_enabled"`
	SyncFrequency int            `gorm:"not null;default:300" json:"sync_frequency"`
	LastSyncedAt  *time.Time     `json:"last_synced_at,omitempty"`
	Config        datatypes.JSON `gorm:"type:jsonb" json:"config"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WorkflowConfig) TableName() string {
	return "workflow_configs"
}

type GetWorkflowConfigParam struct {
	UserID      *string
	WorkflowID  *string
	SyncEnabled *bool
}
