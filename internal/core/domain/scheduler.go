package domain

import "time"

// TaskIDMirrorSync is the daemon task that runs a full sync pass.
const TaskIDMirrorSync = "mirror-sync"

// SchedulerConfig controls the daemon loop.
type SchedulerConfig struct {
	Enabled bool

	// TickInterval is how often the store is polled for due tasks.
	TickInterval time.Duration

	// HistoryLimit caps the stored results per task.
	HistoryLimit int

	TaskConfigs map[string]TaskConfig
}

// TaskConfig is the configured cadence of one task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// DefaultSchedulerConfig mirrors the account every fifteen minutes.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		TickInterval: time.Minute,
		HistoryLimit: 100,
		TaskConfigs: map[string]TaskConfig{
			TaskIDMirrorSync: {Enabled: true, Interval: 15 * time.Minute},
		},
	}
}

// GetTaskConfig returns the zero TaskConfig for unknown tasks.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// ScheduledTask is the persisted state of a recurring task.
// Zero times mean the event has not happened yet.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a successful run.
	LastError string
}

// IsDue reports whether an enabled task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Record applies a finished run to the task and schedules the next one
// an interval after it ended.
func (t *ScheduledTask) Record(r *TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	t.LastError = r.Error
	if r.Success {
		t.LastSuccess = r.EndedAt
	}
}

// TaskResult is one entry of a task's run history.
type TaskResult struct {
	TaskID string

	// RunID is the id of the sync report, empty if the pass never started.
	RunID string

	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts chunks and notes stored by the run.
	ItemsProcessed int
}

// Finish stamps the end of the run with its outcome.
func (r *TaskResult) Finish(end time.Time, err error) {
	r.EndedAt = end
	r.Success = err == nil
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration is how long the run took.
func (r *TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
