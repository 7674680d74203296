package model

import (
	"time"

	"gorm.io/datatypes"
)

type ExecutionStatus string

const (
	ExecutionStatusNew      ExecutionStatus = "new"
	ExecutionStatusRunning  ExecutionStatus = "running"
	ExecutionStatusSuccess  ExecutionStatus = "success"
	ExecutionStatusFailed   ExecutionStatus = "failed"
	ExecutionStatusCanceled ExecutionStatus = "canceled"
	ExecutionStatusCrashed  ExecutionStatus = "crashed"
	ExecutionStatusWaiting  ExecutionStatus = "waiting"
)

// WorkflowExecution mirrors one run of a remote workflow. (user_id,
// execution_id) is unique, so each remote execution maps to at most one row.
type WorkflowExecution struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_executions_user_execution" json:"user_id"`
	WorkflowID  string          `gorm:"type:varchar(64);not null;index" json:"workflow_id"`
	ExecutionID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_executions_user_execution" json:"execution_id"`
	Status      ExecutionStatus `gorm:"type:varchar(20);not null" json:"status"`
	Mode        string          `gorm:"type:varchar(50)" json:"mode"`
	StartedAt   time.Time       `gorm:"not null" json:"started_at"`
	StoppedAt   *time.Time      `json:"stopped_at,omitempty"`
	Finished    bool            `gorm:"not null;default:false" json:"finished"`
	Data        datatypes.JSON  `gorm:"type:jsonb" json:"data"`
	RetryOf     *string         `gorm:"type:varchar(64)" json:"retry_of,omitempty"`
	WaitTill    *time.Time      `json:"wait_till,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WorkflowExecution) TableName() string {
	return "workflow_executions"
}

// IsTerminal reports whether the remote execution can no longer change.
func (e *WorkflowExecution) IsTerminal() bool {
	switch e.Status {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusCanceled, ExecutionStatusCrashed:
		return true
	default:
		return false
	}
}
