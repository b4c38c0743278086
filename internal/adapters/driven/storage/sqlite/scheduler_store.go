package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// timeLayout is a fixed-width RFC3339 layout so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const taskColumns = `id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled`

// schedulerStore keeps the daemon's sync task and the history of its runs.
// Each run row in task_results owns one task_stream_results row per stream
// that took part in the run.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask returns the task, or nil when it has never been saved.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns every saved task.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
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
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask inserts or replaces a task by id.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled
	`, task.ID, task.Name, int64(task.Interval/time.Second),
		timeOrNull(task.LastRun), timeOrNull(task.NextRun),
		textOrNull(task.LastError), timeOrNull(task.LastSuccess),
		task.Enabled)
	if err != nil {
		return fmt.Errorf("saving scheduled task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a task. Its run history is kept.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting scheduled task %s: %w", taskID, err)
	}
	return nil
}

// RecordResult stores a run and its per-stream reports in one transaction.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning result transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO task_results (task_id, run_id, started_at, ended_at, success, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.TaskID, textOrNull(result.RunID),
		result.StartedAt.UTC().Format(timeLayout), result.EndedAt.UTC().Format(timeLayout),
		result.Success, textOrNull(result.Error), result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording result of %s: %w", result.TaskID, err)
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading result id: %w", err)
	}

	for stream, sr := range result.Streams {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_stream_results (result_id, stream, extracted, skipped, indexed, index_failed,
				deleted, failed_entities, completed, watermark, advanced, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, resultID, string(stream), sr.Extracted, sr.Skipped, sr.Indexed, sr.IndexFailed,
			sr.Deleted, textOrNull(joinEntities(sr.Failed)), sr.Completed,
			watermarkOrNull(sr.Watermark), sr.Advanced, textOrNull(sr.Error))
		if err != nil {
			return fmt.Errorf("recording %s stream of run %s: %w", stream, result.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing result of %s: %w", result.TaskID, err)
	}
	return nil
}

// GetTaskHistory returns up to limit runs of a task, most recent first,
// each with its stream reports.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, task_id, run_id, started_at, ended_at, success, error, items_processed
		FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", taskID, err)
	}

	var (
		ids     []int64
		results []domain.TaskResult
	)
	for rows.Next() {
		id, result, err := scanResult(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
		results = append(results, result)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating history of %s: %w", taskID, err)
	}
	if len(ids) == 0 {
		return results, nil
	}

	streams, err := s.streamResults(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		results[i].Streams = streams[id]
	}
	return results, nil
}

// streamResults loads the stream reports of the given runs keyed by run row id.
func (s *schedulerStore) streamResults(ctx context.Context, ids []int64) (map[int64]map[domain.Stream]domain.StreamReport, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT result_id, stream, extracted, skipped, indexed, index_failed,
			deleted, failed_entities, completed, watermark, advanced, error
		FROM task_stream_results
		WHERE result_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stream results: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]map[domain.Stream]domain.StreamReport, len(ids))
	for rows.Next() {
		var (
			resultID         int64
			streamName       string
			sr               domain.StreamReport
			failed, wm, msg  sql.NullString
			completed, moved bool
		)
		if err := rows.Scan(&resultID, &streamName, &sr.Extracted, &sr.Skipped, &sr.Indexed,
			&sr.IndexFailed, &sr.Deleted, &failed, &completed, &wm, &moved, &msg); err != nil {
			return nil, fmt.Errorf("scanning stream result: %w", err)
		}

		stream, err := domain.ParseStream(streamName)
		if err != nil {
			return nil, fmt.Errorf("stream result of run %d: %w", resultID, err)
		}
		if sr.Failed, err = splitEntities(failed.String); err != nil {
			return nil, fmt.Errorf("stream result of run %d: %w", resultID, err)
		}
		if wm.Valid && wm.String != "" {
			if sr.Watermark, err = domain.ParseWatermark(wm.String); err != nil {
				return nil, fmt.Errorf("stream result of run %d: %w", resultID, err)
			}
		}
		sr.Completed = completed
		sr.Advanced = moved
		sr.Error = msg.String

		if out[resultID] == nil {
			out[resultID] = make(map[domain.Stream]domain.StreamReport)
		}
		out[resultID][stream] = sr
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stream results: %w", err)
	}
	return out, nil
}

// PruneHistory keeps the keep most recent runs per task and drops the
// stream reports of removed runs.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning prune transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC) AS rn
				FROM task_results
			) WHERE rn <= ?
		)
	`, keep); err != nil {
		return fmt.Errorf("pruning run history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM task_stream_results
		WHERE result_id NOT IN (SELECT id FROM task_results)
	`); err != nil {
		return fmt.Errorf("pruning stream results: %w", err)
	}
	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                                domain.ScheduledTask
		seconds                             int64
		lastRun, nextRun, lastErr, lastSucc sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Name, &seconds,
		&lastRun, &nextRun, &lastErr, &lastSucc, &task.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = parseTime(lastRun)
	task.NextRun = parseTime(nextRun)
	task.LastError = lastErr.String
	task.LastSuccess = parseTime(lastSucc)
	return &task, nil
}

func scanResult(row rowScanner) (int64, domain.TaskResult, error) {
	var (
		id                int64
		result            domain.TaskResult
		started, ended    string
		runID, errMessage sql.NullString
	)
	if err := row.Scan(&id, &result.TaskID, &runID, &started, &ended,
		&result.Success, &errMessage, &result.ItemsProcessed); err != nil {
		return 0, result, fmt.Errorf("scanning task result: %w", err)
	}

	result.RunID = runID.String
	result.StartedAt = parseTime(sql.NullString{String: started, Valid: true})
	result.EndedAt = parseTime(sql.NullString{String: ended, Valid: true})
	result.Error = errMessage.String
	return id, result, nil
}

// joinEntities encodes failed entity types as a sorted comma list.
func joinEntities(entities []domain.EntityType) string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = string(e)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func splitEntities(s string) ([]domain.EntityType, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]domain.EntityType, 0, len(parts))
	for _, p := range parts {
		e, err := domain.ParseEntityType(p)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// timeOrNull stores zero times as NULL.
func timeOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func watermarkOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return domain.FormatWatermark(t)
}

// parseTime reads a stored time; NULL or unparsable values are zero.
func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func textOrNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
