package dto

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionDetailDecode(t *testing.T) {
	payload := `{
		"id": "1042",
		"workflowId": "wf-1",
		"mode": "trigger",
		"startedAt": "2026-08-01T10:00:00Z",
		"stoppedAt": "2026-08-01T10:00:02Z",
		"finished": true,
		"status": "success",
		"data": {
			"resultData": {
				"runData": {
					"Webhook": [
						{"executionTime": 12, "startTime": 1754042400000, "data": {"main": [[{"json": {"order": 1}}]]}},
						{"executionTime": 8, "startTime": 1754042401000, "data": {"main": [[{"json": {"order": 2}}]]}}
					]
				}
			}
		}
	}`

	var detail ExecutionDetail
	require.NoError(t, json.Unmarshal([]byte(payload), &detail))

	assert.Equal(t, "1042", detail.ID)
	assert.Equal(t, "wf-1", detail.WorkflowID)
	assert.Equal(t, "success", detail.Status)
	require.NotNil(t, detail.Data)
	require.NotNil(t, detail.Data.ResultData)

	runs := detail.Data.ResultData.RunData["Webhook"]
	require.Len(t, runs, 2)
	assert.Equal(t, int64(12), runs[0].ExecutionTime)
	assert.JSONEq(t, `{"main": [[{"json": {"order": 1}}]]}`, string(runs[0].Data))

	assert.NotNil(t, detail.RawData())
}

func TestExecutionDetailRawDataKeepsSourceFields(t *testing.T) {
	// Fields outside the typed shape (startData, executionData,
	// lastNodeExecuted, per-run source) must survive into the stored payload.
	dataMember := `{
		"startData": {"destinationNode": "Webhook"},
		"executionData": {"contextData": {}},
		"resultData": {
			"lastNodeExecuted": "Postgres",
			"runData": {"Webhook": [{"executionTime": 5, "startTime": 0, "source": [], "data": {"main": []}}]}
		}
	}`
	payload := fmt.Sprintf(`{"id":"1044","workflowId":"wf-1","startedAt":"2026-08-01T10:00:00Z","status":"success","finished":true,"data":%s}`, dataMember)

	var detail ExecutionDetail
	require.NoError(t, json.Unmarshal([]byte(payload), &detail))

	assert.JSONEq(t, dataMember, string(detail.RawData()))

	require.NotNil(t, detail.Data)
	require.NotNil(t, detail.Data.ResultData)
	assert.Len(t, detail.Data.ResultData.RunData["Webhook"], 1)
}

func TestExecutionDetailDecodeWithoutResultData(t *testing.T) {
	payload := `{
		"id": "1043",
		"workflowId": "wf-1",
		"startedAt": "2026-08-01T10:00:00Z",
		"finished": false,
		"status": "running"
	}`

	var detail ExecutionDetail
	require.NoError(t, json.Unmarshal([]byte(payload), &detail))

	assert.Nil(t, detail.Data, "an execution without results decodes with nil data, not an empty shell")
	assert.Nil(t, detail.RawData())
	assert.Nil(t, detail.StoppedAt)
}

func TestEngineExecutionValidate(t *testing.T) {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	valid := EngineExecution{ID: "1", WorkflowID: "wf-1", StartedAt: started, Status: "success"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(e *EngineExecution)
		wantErr string
	}{
		{
			name:    "missing id",
			mutate:  func(e *EngineExecution) { e.ID = "" },
			wantErr: "missing an id",
		},
		{
			name:    "missing workflow id",
			mutate:  func(e *EngineExecution) { e.WorkflowID = "" },
			wantErr: "missing a workflow id",
		},
		{
			name:    "missing start time",
			mutate:  func(e *EngineExecution) { e.StartedAt = time.Time{} },
			wantErr: "missing a start time",
		},
		{
			name:    "unknown status",
			mutate:  func(e *EngineExecution) { e.Status = "exploded" },
			wantErr: "unknown status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEngineExecutionValidateAcceptsEveryLifecycleStatus(t *testing.T) {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for _, status := range []string{"new", "running", "success", "failed", "canceled", "crashed", "waiting"} {
		e := EngineExecution{ID: "1", WorkflowID: "wf-1", StartedAt: started, Status: status}
		assert.NoError(t, e.Validate(), status)
	}
}
