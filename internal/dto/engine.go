package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Engine API payloads. The engine speaks JSON over REST with a header API
// key; every response we consume is decoded into these fixed shapes and
// validated before anything touches the mirror store.

type EngineNode struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type EngineWorkflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Active      bool            `json:"active"`
	Nodes       []EngineNode    `json:"nodes"`
	Connections json.RawMessage `json:"connections"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Tags        []EngineTag     `json:"tags,omitempty"`
}

type EngineTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EngineExecution struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflowId"`
	Mode       string     `json:"mode"`
	RetryOf    *string    `json:"retryOf,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	StoppedAt  *time.Time `json:"stoppedAt,omitempty"`
	Finished   bool       `json:"finished"`
	Status     string     `json:"status"`
	WaitTill   *time.Time `json:"waitTill,omitempty"`
}

var executionStatuses = map[string]struct{}{
	"new": {}, "running": {}, "success": {}, "failed": {},
	"canceled": {}, "crashed": {}, "waiting": {},
}

// Validate enforces the fixed execution schema: identifiers and start time
// must be present and the status must be a known lifecycle state.
func (e *EngineExecution) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("execution is missing an id")
	}
	if e.WorkflowID == "" {
		return fmt.Errorf("execution %s is missing a workflow id", e.ID)
	}
	if e.StartedAt.IsZero() {
		return fmt.Errorf("execution %s is missing a start time", e.ID)
	}
	if _, ok := executionStatuses[e.Status]; !ok {
		return fmt.Errorf("execution %s has unknown status %q", e.ID, e.Status)
	}
	return nil
}

type ListExecutionsResponse struct {
	Data []EngineExecution `json:"data"`
}

// ExecutionDetail is the full execution record including run data. Data is
// nil for executions that have produced no result yet (e.g. still running);
// that case is "nothing to extract", not an error.
type ExecutionDetail struct {
	EngineExecution
	Data *ExecutionData `json:"data,omitempty"`

	rawData json.RawMessage
}

// UnmarshalJSON decodes the typed shape used for extraction and keeps the
// data member byte-for-byte as the engine sent it. The stored mirror row must
// carry the full source payload, including fields the typed decode does not
// model.
func (d *ExecutionDetail) UnmarshalJSON(b []byte) error {
	type executionDetail ExecutionDetail
	var decoded executionDetail
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return err
	}

	*d = ExecutionDetail(decoded)
	d.rawData = envelope.Data
	return nil
}

// RawData returns the execution's data member for storage as the mirrored
// row's payload: the source bytes when the detail was decoded from an engine
// response, otherwise a re-serialization of the typed form. Nil when the
// execution has no result yet.
func (d *ExecutionDetail) RawData() datatypes.JSON {
	if len(d.rawData) > 0 && string(d.rawData) != "null" {
		return datatypes.JSON(d.rawData)
	}
	if d.Data == nil {
		return nil
	}
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

type ExecutionData struct {
	ResultData *ResultData `json:"resultData,omitempty"`
}

type ResultData struct {
	RunData map[string][]NodeRun `json:"runData"`
}

type NodeRun struct {
	ExecutionTime int64           `json:"executionTime"`
	StartTime     int64           `json:"startTime"`
	Data          json.RawMessage `json:"data,omitempty"`
	Error         json.RawMessage `json:"error,omitempty"`
}

type ListExecutionsParam struct {
	WorkflowID string
	Status     string
	Limit      int
	Offset     int
}
