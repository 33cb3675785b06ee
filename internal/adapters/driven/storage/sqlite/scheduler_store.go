package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// timeLayout keeps a fixed width so timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	taskColumns   = `id, name, interval_seconds, enabled, last_run, next_run, last_success, last_error`
	resultColumns = `task_id, run_id, started_at, ended_at, success, error, items_processed`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// schedulerStore keeps daemon task state and run history next to the
// mirrored resources.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask upserts the task by id.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error`,
		task.ID, task.Name, int64(task.Interval/time.Second), task.Enabled,
		timeValue(task.LastRun), timeValue(task.NextRun), timeValue(task.LastSuccess),
		textValue(task.LastError))
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx,
		`INSERT INTO task_results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.TaskID, textValue(result.RunID),
		formatTime(result.StartedAt), formatTime(result.EndedAt),
		result.Success, textValue(result.Error), result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("record result for %s: %w", result.TaskID, err)
	}
	return nil
}

// GetTaskHistory returns up to limit results, newest first.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("task history %s: %w", taskID, err)
	}
	defer rows.Close()

	var results []domain.TaskResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task history %s: %w", taskID, err)
	}
	return results, nil
}

// PruneHistory keeps the newest keep results of every task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY task_id ORDER BY started_at DESC, id DESC
				) AS position
				FROM task_results
			) WHERE position > ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                              domain.ScheduledTask
		seconds                           int64
		lastRun, nextRun, lastOK, lastErr sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Name, &seconds, &task.Enabled,
		&lastRun, &nextRun, &lastOK, &lastErr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = parseTime(lastRun)
	task.NextRun = parseTime(nextRun)
	task.LastSuccess = parseTime(lastOK)
	task.LastError = lastErr.String
	return &task, nil
}

func scanResult(row rowScanner) (*domain.TaskResult, error) {
	var (
		result             domain.TaskResult
		runID, errText     sql.NullString
		startedAt, endedAt sql.NullString
	)
	if err := row.Scan(&result.TaskID, &runID, &startedAt, &endedAt,
		&result.Success, &errText, &result.ItemsProcessed); err != nil {
		return nil, fmt.Errorf("scan task result: %w", err)
	}

	result.RunID = runID.String
	result.Error = errText.String
	result.StartedAt = parseTime(startedAt)
	result.EndedAt = parseTime(endedAt)
	return &result, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timeValue stores the zero time as NULL.
func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseTime maps NULL and unreadable values to the zero time.
func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// textValue stores the empty string as NULL.
func textValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}
