package service

import (
	"blok-sync/config"
	"blok-sync/internal/dto"
	"blok-sync/internal/model"
	"blok-sync/pkg/utils"
	"context"
	"fmt"
	"sync"
	"time"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Scheduler: config.Scheduler{
			Enabled:         true,
			Interval:        time.Minute,
			TenantDelay:     time.Millisecond,
			TimeoutDuration: 5 * time.Second,
		},
		Engine: config.Engine{
			ExecutionPageSize: 50,
			MaxRequestPerMin:  600,
		},
	}
}

// fakeEngineRepo serves canned workflows, execution pages and details.
type fakeEngineRepo struct {
	mu         sync.Mutex
	workflows  map[string]*dto.EngineWorkflow
	executions []dto.EngineExecution
	details    map[string]*dto.ExecutionDetail
	listErr    error
	listErrFor string
	detailErr  error
	listGate   chan struct{}
	listCalls  int
}

func (f *fakeEngineRepo) ListWorkflows(ctx context.Context) ([]dto.EngineWorkflow, error) {
	var out []dto.EngineWorkflow
	for _, w := range f.workflows {
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeEngineRepo) GetWorkflow(ctx context.Context, workflowID string) (*dto.EngineWorkflow, error) {
	if w, ok := f.workflows[workflowID]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("workflow %s not found", workflowID)
}

func (f *fakeEngineRepo) SetWorkflowActive(ctx context.Context, workflowID string, active bool) (*dto.EngineWorkflow, error) {
	w, ok := f.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow %s not found", workflowID)
	}
	w.Active = active
	return w, nil
}

func (f *fakeEngineRepo) ListExecutions(ctx context.Context, param dto.ListExecutionsParam) ([]dto.EngineExecution, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listErrFor != "" && param.WorkflowID == f.listErrFor {
		return nil, fmt.Errorf("engine returned status 500 for workflow %s", param.WorkflowID)
	}

	var out []dto.EngineExecution
	for _, e := range f.executions {
		if param.WorkflowID == "" || e.WorkflowID == param.WorkflowID {
			out = append(out, e)
		}
		if param.Limit > 0 && len(out) >= param.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEngineRepo) GetExecution(ctx context.Context, executionID string, includeData bool) (*dto.ExecutionDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if d, ok := f.details[executionID]; ok {
		return d, nil
	}
	for _, e := range f.executions {
		if e.ID == executionID {
			return &dto.ExecutionDetail{EngineExecution: e}, nil
		}
	}
	return nil, fmt.Errorf("execution %s not found", executionID)
}

func (f *fakeEngineRepo) StopExecution(ctx context.Context, executionID string) (*dto.EngineExecution, error) {
	for _, e := range f.executions {
		if e.ID == executionID {
			stopped := e
			stopped.Status = "canceled"
			return &stopped, nil
		}
	}
	return nil, fmt.Errorf("execution %s not found", executionID)
}

// fakeExecutionRepo mirrors rows in memory, keyed by (user, execution id).
type fakeExecutionRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[string]*model.WorkflowExecution
}

func newFakeExecutionRepo() *fakeExecutionRepo {
	return &fakeExecutionRepo{rows: make(map[string]*model.WorkflowExecution)}
}

func execKey(userID, executionID string) string {
	return userID + "/" + executionID
}

func (f *fakeExecutionRepo) FindByExecutionID(ctx context.Context, userID, executionID string, opts ...utils.DBOption) (*model.WorkflowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[execKey(userID, executionID)]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeExecutionRepo) Create(ctx context.Context, execution *model.WorkflowExecution, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := execKey(execution.UserID, execution.ExecutionID)
	if _, exists := f.rows[key]; exists {
		return fmt.Errorf("duplicate key (user_id, execution_id)")
	}
	f.nextID++
	execution.ID = f.nextID
	copied := *execution
	f.rows[key] = &copied
	return nil
}

func (f *fakeExecutionRepo) Update(ctx context.Context, execution *model.WorkflowExecution, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == execution.ID {
			row.Status = execution.Status
			row.StoppedAt = execution.StoppedAt
			row.Finished = execution.Finished
			row.Data = execution.Data
			row.WaitTill = execution.WaitTill
			return nil
		}
	}
	return fmt.Errorf("execution row %d not found", execution.ID)
}

func (f *fakeExecutionRepo) LatestStartedAt(ctx context.Context, userID, workflowID string, opts ...utils.DBOption) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *time.Time
	for _, row := range f.rows {
		if row.UserID != userID || row.WorkflowID != workflowID {
			continue
		}
		if latest == nil || row.StartedAt.After(*latest) {
			t := row.StartedAt
			latest = &t
		}
	}
	return latest, nil
}

func (f *fakeExecutionRepo) FindStartedWithin(ctx context.Context, userID, workflowID string, from, to time.Time, opts ...utils.DBOption) ([]model.WorkflowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.WorkflowExecution
	for _, row := range f.rows {
		if row.UserID != userID || row.WorkflowID != workflowID {
			continue
		}
		if row.StartedAt.Before(from) || row.StartedAt.After(to) {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeExecutionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeDataRepo enforces the (execution_ref, node_name, run_index)
// fingerprint the way the real table's unique index does.
type fakeDataRepo struct {
	mu           sync.Mutex
	records      []model.WorkflowData
	fingerprints map[string]struct{}
}

func newFakeDataRepo() *fakeDataRepo {
	return &fakeDataRepo{fingerprints: make(map[string]struct{})}
}

func (f *fakeDataRepo) CreateBatch(ctx context.Context, records []model.WorkflowData, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range records {
		fp := fmt.Sprintf("%d/%s/%d", record.ExecutionRef, record.NodeName, record.RunIndex)
		if _, exists := f.fingerprints[fp]; exists {
			continue
		}
		f.fingerprints[fp] = struct{}{}
		f.records = append(f.records, record)
	}
	return nil
}

func (f *fakeDataRepo) CountByExecutionRef(ctx context.Context, executionRef uint, opts ...utils.DBOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, record := range f.records {
		if record.ExecutionRef == executionRef {
			count++
		}
	}
	return count, nil
}

// fakeConfigRepo tracks configured pairs and last-sync touches.
type fakeConfigRepo struct {
	mu       sync.Mutex
	syncable []model.WorkflowConfig
	touched  []string
	touchErr error
}

func (f *fakeConfigRepo) Upsert(ctx context.Context, cfg *model.WorkflowConfig, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncable = append(f.syncable, *cfg)
	return nil
}

func (f *fakeConfigRepo) Get(ctx context.Context, param model.GetWorkflowConfigParam, opts ...utils.DBOption) ([]model.WorkflowConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.WorkflowConfig{}, f.syncable...), nil
}

func (f *fakeConfigRepo) FindByPair(ctx context.Context, userID, workflowID string, opts ...utils.DBOption) (*model.WorkflowConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.syncable {
		if f.syncable[i].UserID == userID && f.syncable[i].WorkflowID == workflowID {
			copied := f.syncable[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeConfigRepo) FindSyncable(ctx context.Context, opts ...utils.DBOption) ([]model.WorkflowConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.WorkflowConfig{}, f.syncable...), nil
}

func (f *fakeConfigRepo) TouchLastSyncedAt(ctx context.Context, userID, workflowID string, syncedAt time.Time, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, userID+"/"+workflowID)
	return nil
}

// fakeUnitOfWork runs the callback without a real transaction.
type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	return fn()
}

// fakeMetricsService records which pairs had metrics computed.
type fakeMetricsService struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeMetricsService) CalculateMetrics(ctx context.Context, workflowID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+"/"+workflowID)
	return f.err
}

// fakeMetricRepo stores metric rows keyed the way the unique index would.
type fakeMetricRepo struct {
	mu   sync.Mutex
	rows map[string]model.WorkflowMetric
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{rows: make(map[string]model.WorkflowMetric)}
}

func metricKey(m *model.WorkflowMetric) string {
	return fmt.Sprintf("%s/%s/%s/%d/%d", m.UserID, m.WorkflowID, m.MetricName, m.PeriodStart.UnixNano(), m.PeriodEnd.UnixNano())
}

func (f *fakeMetricRepo) Upsert(ctx context.Context, metric *model.WorkflowMetric, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[metricKey(metric)] = *metric
	return nil
}

func (f *fakeMetricRepo) FindByPeriod(ctx context.Context, userID, workflowID string, periodStart, periodEnd time.Time, opts ...utils.DBOption) ([]model.WorkflowMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.WorkflowMetric
	for _, row := range f.rows {
		if row.UserID == userID && row.WorkflowID == workflowID && row.PeriodStart.Equal(periodStart) && row.PeriodEnd.Equal(periodEnd) {
			out = append(out, row)
		}
	}
	return out, nil
}

// fakeSyncService lets scheduler tests control batch behavior.
type fakeSyncService struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	results []dto.TenantSyncResult
}

func (f *fakeSyncService) SyncExecutions(ctx context.Context, workflowID, userID string) *dto.SyncResult {
	return &dto.SyncResult{Success: true}
}

func (f *fakeSyncService) SyncAll(ctx context.Context) []dto.TenantSyncResult {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return f.results
}

func (f *fakeSyncService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
