package model

import (
	"time"

	"gorm.io/datatypes"
)

// WorkflowData holds one extracted node-output fragment of an execution.
// (execution_ref, node_name, run_index) is the dedup fingerprint, so a sync
// pass re-reading the same detailed payload never re-appends rows.
type WorkflowData struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ExecutionRef    uint           `gorm:"not null;uniqueIndex:idx_workflow_data_fingerprint" json:"execution_ref"`
	UserID          string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	WorkflowID      string         `gorm:"type:varchar(64);not null;index" json:"workflow_id"`
	DataType        string         `gorm:"type:varchar(20);not null" json:"data_type"`
	NodeName        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_workflow_data_fingerprint" json:"node_name"`
	NodeType        string         `gorm:"type:varchar(255);not null" json:"node_type"`
	RunIndex        int            `gorm:"not null;uniqueIndex:idx_workflow_data_fingerprint" json:"run_index"`
	Data            datatypes.JSON `gorm:"type:jsonb" json:"data"`
	ExecutionTimeMs int64          `gorm:"not null;default:0" json:"execution_time_ms"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`

	Execution WorkflowExecution `gorm:"foreignKey:ExecutionRef;references:ID" json:"-"`
}

func (WorkflowData) TableName() string {
	return "workflow_data"
}

const DataTypeOutput = "output"

// NodeTypeUnknown is stored when the detailed payload does not name the node type.
const NodeTypeUnknown = "unknown"
