package service

import (
	"blok-sync/internal/dto"
	"blok-sync/pkg/lock"
	"blok-sync/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchedulerFixture() (*schedulerService, *fakeSyncService) {
	sync := &fakeSyncService{}
	s := &schedulerService{
		cfg:         newTestConfig(),
		log:         logger.NewNop(),
		syncService: sync,
		passGuard:   lock.NewKeyedLock(),
	}
	return s, sync
}

func TestSchedulerStartRunsFirstPassImmediately(t *testing.T) {
	s, sync := newSchedulerFixture()
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		return sync.callCount() >= 1
	}, time.Second, time.Millisecond, "start must fire a pass without waiting a full interval")
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	s, sync := newSchedulerFixture()
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "a second start is a no-op, not an error")
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		return sync.callCount() >= 1
	}, time.Second, time.Millisecond)
}

func TestSchedulerStop(t *testing.T) {
	s, _ := newSchedulerFixture()

	require.NoError(t, s.Start(context.Background()))
	require.True(t, s.Running())

	s.Stop()
	assert.False(t, s.Running())

	// Stopping again is harmless.
	s.Stop()
	assert.False(t, s.Running())
}

func TestSchedulerOverlappingPassIsSkipped(t *testing.T) {
	s, sync := newSchedulerFixture()
	sync.gate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		s.runPass(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return sync.callCount() == 1
	}, time.Second, time.Millisecond)

	// The first pass is still inside SyncAll; a second firing must return
	// without starting another batch.
	s.runPass(context.Background())
	assert.Equal(t, 1, sync.callCount())

	close(sync.gate)
	<-done

	// Once the pass guard is released a new firing runs again.
	sync.gate = nil
	s.runPass(context.Background())
	assert.Equal(t, 2, sync.callCount())
}

func TestForceSyncReturnsBatchResults(t *testing.T) {
	s, sync := newSchedulerFixture()
	sync.results = []dto.TenantSyncResult{
		{UserID: "user-1", WorkflowID: "wf-1", Success: true, SyncedCount: 3},
		{UserID: "user-2", WorkflowID: "wf-2", Success: false, Message: "engine unreachable"},
	}

	results := s.ForceSync(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].SyncedCount)
	assert.False(t, results[1].Success)
	assert.Equal(t, 1, sync.callCount())
}
