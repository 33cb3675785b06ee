package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler manages background task execution for daemon mode.
// Tasks run one at a time; a due task is skipped while another runs.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	engine  driving.SyncEngine
	options driving.RunOptions

	mu      sync.Mutex
	running bool
	busy    bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	engine driving.SyncEngine,
	options driving.RunOptions,
) *Scheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Minute
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 100
	}
	return &Scheduler{
		config:  config,
		store:   store,
		engine:  engine,
		options: options,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initialise tasks in store
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	// Run the main scheduler loop
	err := s.run(ctx)
	s.wg.Wait()
	return err
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// RunNow executes a task immediately and records its result.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		cfg := s.config.GetTaskConfig(taskID)
		task = &domain.ScheduledTask{ID: taskID, Name: taskName(taskID), Interval: cfg.Interval, Enabled: cfg.Enabled}
	}

	if !s.acquire() {
		return nil, domain.ErrSyncInProgress
	}
	defer s.release()

	return s.execute(ctx, task)
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDMirrorSync); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDMirrorSync, taskName(domain.TaskIDMirrorSync), taskCfg); err != nil {
			return err
		}
	}

	return nil
}

// ensureTask creates or updates a task in the store.
// A new task is due immediately so the daemon syncs on startup.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// Create new task
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now(),
		}
	} else {
		// Update interval if changed
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from the last run
			task.NextRun = task.LastRun.Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if task.IsDue(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background unless another task is running.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	if !s.acquire() {
		logger.Debug("scheduler: %s is due but a task is running, skipping", task.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()

		if _, err := s.execute(ctx, task); err != nil {
			logger.Warn("scheduler: %s failed: %v", task.ID, err)
		}
	}()
}

// execute runs the task, updates its state and records the result.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) (*domain.TaskResult, error) {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: time.Now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDMirrorSync:
		err = s.runMirrorSync(ctx, result)
	default:
		err = fmt.Errorf("%w: unknown task ID %q", domain.ErrInvalidInput, task.ID)
	}

	result.Finish(time.Now(), err)
	task.Record(result)

	// Bookkeeping outlives cancellation.
	bookCtx := context.WithoutCancel(ctx)
	if saveErr := s.store.SaveTask(bookCtx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}

	// Record result for history
	if recordErr := s.store.RecordResult(bookCtx, result); recordErr != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}

	if pruneErr := s.store.PruneHistory(bookCtx, s.config.HistoryLimit); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}

	return result, err
}

// runMirrorSync performs one full sync pass.
func (s *Scheduler) runMirrorSync(ctx context.Context, result *domain.TaskResult) error {
	if s.engine == nil {
		return nil
	}

	report, err := s.engine.Run(ctx, s.options)
	if report != nil {
		result.RunID = report.RunID
		result.ItemsProcessed = report.ItemsProcessed()
	}
	return err
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func taskName(id string) string {
	switch id {
	case domain.TaskIDMirrorSync:
		return "Mirror Sync"
	default:
		return id
	}
}
