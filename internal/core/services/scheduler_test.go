package services

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	// Return a copy
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pruneErr != nil {
		return m.pruneErr
	}
	for id, results := range m.results {
		if len(results) > keep {
			m.results[id] = results[len(results)-keep:]
		}
	}
	return nil
}

func (m *mockSchedulerStore) history(taskID string) []domain.TaskResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.TaskResult(nil), m.results[taskID]...)
}

// mockSyncEngine implements driving.SyncEngine for testing.
type mockSyncEngine struct {
	mu      sync.Mutex
	runs    int
	runErr  error
	options []driving.RunOptions
	block   chan struct{}
}

func (m *mockSyncEngine) ConfirmVersion(context.Context) error { return nil }

func (m *mockSyncEngine) Cursor(context.Context) (int32, error) { return 0, nil }

func (m *mockSyncEngine) SyncNotebooks(context.Context) (domain.NotebookList, error) {
	return domain.NotebookList{}, nil
}

func (m *mockSyncEngine) SyncChunks(context.Context) (*driving.ChunkReport, error) {
	return &driving.ChunkReport{}, nil
}

func (m *mockSyncEngine) BackfillChunks(context.Context) (*driving.ChunkReport, error) {
	return &driving.ChunkReport{}, nil
}

func (m *mockSyncEngine) SyncModifiedNotes(context.Context, int32) iter.Seq2[*domain.Note, error] {
	return func(func(*domain.Note, error) bool) {}
}

func (m *mockSyncEngine) Run(ctx context.Context, opts driving.RunOptions) (*driving.SyncReport, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.options = append(m.options, opts)
	return &driving.SyncReport{
		RunID:          "run-1",
		Chunks:         &driving.ChunkReport{Chunks: []string{"1", "2"}},
		NotesRefreshed: []string{"A"},
	}, m.runErr
}

func (m *mockSyncEngine) Gaps(context.Context) ([]domain.USNRange, error) { return nil, nil }

func (m *mockSyncEngine) Status(context.Context) (*driving.MirrorStatus, error) {
	return &driving.MirrorStatus{}, nil
}

func (m *mockSyncEngine) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// Ensure mocks implement interfaces
var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)
var _ driving.SyncEngine = (*mockSyncEngine)(nil)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	engine := &mockSyncEngine{}

	scheduler := NewScheduler(config, store, engine, driving.RunOptions{})

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
}

func TestNewScheduler_Defaults(t *testing.T) {
	scheduler := NewScheduler(domain.SchedulerConfig{Enabled: true}, newMockSchedulerStore(), nil, driving.RunOptions{})

	assert.Equal(t, time.Minute, scheduler.config.TickInterval)
	assert.Equal(t, 100, scheduler.config.HistoryLimit)
}

func TestScheduler_StartStop(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	engine := &mockSyncEngine{}

	scheduler := NewScheduler(config, store, engine, driving.RunOptions{})

	ctx, cancel := context.WithCancel(context.Background())

	// Start scheduler in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Stop scheduler
	cancel()
	err := scheduler.Stop()
	require.NoError(t, err)

	wg.Wait()

	// A new task is due at once, so the daemon synced on startup
	assert.Equal(t, 1, engine.runCount())
}

func TestScheduler_StartDisabled(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	config.Enabled = false
	engine := &mockSyncEngine{}

	scheduler := NewScheduler(config, newMockSchedulerStore(), engine, driving.RunOptions{})

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Equal(t, 0, engine.runCount())
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockSyncEngine{}, driving.RunOptions{})

	// Stop without starting should be safe
	err := scheduler.Stop()
	require.NoError(t, err)
}

func TestScheduler_DoubleStart(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockSyncEngine{}, driving.RunOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First start
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Second start should return immediately (already running)
	ctx2 := context.Background()
	err := scheduler.Start(ctx2)
	assert.NoError(t, err) // Should not error

	cancel()
	scheduler.Stop() //nolint:errcheck
	wg.Wait()
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockSyncEngine{}, driving.RunOptions{})

	ctx := context.Background()
	err := scheduler.initialiseTasks(ctx)
	require.NoError(t, err)

	// Check mirror sync task was created
	task, err := store.GetTask(ctx, domain.TaskIDMirrorSync)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Mirror Sync", task.Name)
	assert.True(t, task.Enabled)
	assert.Equal(t, 15*time.Minute, task.Interval)
	assert.False(t, task.NextRun.After(time.Now()))
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockSyncEngine{}, driving.RunOptions{})
	ctx := context.Background()

	// Create initial task
	taskCfg := domain.TaskConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
	err := scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg)
	require.NoError(t, err)

	// Update with new interval
	taskCfg.Interval = 2 * time.Hour
	err = scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg)
	require.NoError(t, err)

	// Verify interval was updated
	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestScheduler_RunNow(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	engine := &mockSyncEngine{}
	opts := driving.RunOptions{Backfill: true}

	scheduler := NewScheduler(config, store, engine, opts)
	ctx := context.Background()

	result, err := scheduler.RunNow(ctx, domain.TaskIDMirrorSync)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 3, result.ItemsProcessed)
	assert.Equal(t, []driving.RunOptions{opts}, engine.options)

	task, err := store.GetTask(ctx, domain.TaskIDMirrorSync)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Empty(t, task.LastError)
	assert.False(t, task.LastSuccess.IsZero())
	assert.Equal(t, result.EndedAt.Add(task.Interval), task.NextRun)

	assert.Len(t, store.history(domain.TaskIDMirrorSync), 1)
}

func TestScheduler_RunNow_RecordsFailure(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	engine := &mockSyncEngine{runErr: domain.ErrVersionOutdated}

	scheduler := NewScheduler(config, store, engine, driving.RunOptions{})
	ctx := context.Background()

	result, err := scheduler.RunNow(ctx, domain.TaskIDMirrorSync)
	assert.ErrorIs(t, err, domain.ErrVersionOutdated)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "outdated")

	task, err := store.GetTask(ctx, domain.TaskIDMirrorSync)
	require.NoError(t, err)
	assert.Contains(t, task.LastError, "outdated")
}

func TestScheduler_RunNow_UnknownTask(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), &mockSyncEngine{}, driving.RunOptions{})

	result, err := scheduler.RunNow(context.Background(), "unknown-task")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, result.Success)
}

func TestScheduler_RunNow_StoreError(t *testing.T) {
	store := newMockSchedulerStore()
	store.getErr = errors.New("database is locked")
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSyncEngine{}, driving.RunOptions{})

	_, err := scheduler.RunNow(context.Background(), domain.TaskIDMirrorSync)
	assert.ErrorContains(t, err, "database is locked")
}

func TestScheduler_RunMirrorSync_NilEngine(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, nil, driving.RunOptions{})

	result, err := scheduler.RunNow(context.Background(), domain.TaskIDMirrorSync)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestScheduler_CheckAndRunDueTasks(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	engine := &mockSyncEngine{}

	scheduler := NewScheduler(config, store, engine, driving.RunOptions{})
	ctx := context.Background()

	// Create a task that is due
	now := time.Now()
	dueTask := &domain.ScheduledTask{
		ID:       domain.TaskIDMirrorSync,
		Name:     "Mirror Sync",
		Interval: 1 * time.Hour,
		NextRun:  now.Add(-1 * time.Minute), // Already past due
		Enabled:  true,
	}
	err := store.SaveTask(ctx, dueTask)
	require.NoError(t, err)

	// Check and run due tasks
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	// Verify sync was called
	assert.Equal(t, 1, engine.runCount())

	// Not due again until the interval elapses
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()
	assert.Equal(t, 1, engine.runCount())
}

func TestScheduler_SkipsWhileBusy(t *testing.T) {
	store := newMockSchedulerStore()
	engine := &mockSyncEngine{block: make(chan struct{})}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, engine, driving.RunOptions{})
	ctx := context.Background()

	task := &domain.ScheduledTask{ID: domain.TaskIDMirrorSync, Interval: time.Hour, Enabled: true}
	scheduler.runTask(ctx, task)

	_, err := scheduler.RunNow(ctx, domain.TaskIDMirrorSync)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(engine.block)
	scheduler.wg.Wait()
	assert.Equal(t, 1, engine.runCount())
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, nil, driving.RunOptions{})
	ctx := context.Background()

	// Create unknown task
	task := &domain.ScheduledTask{
		ID:      "unknown-task",
		Name:    "Unknown",
		Enabled: true,
	}

	// This should just log and return, not panic
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()

	results := store.history("unknown-task")
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
}
