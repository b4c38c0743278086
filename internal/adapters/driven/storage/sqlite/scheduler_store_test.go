package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// ==================== SchedulerStore Tests ====================

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC()
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDIndexSync,
		Name:        "Index Sync",
		Interval:    15 * time.Minute,
		LastRun:     now.Add(-30 * time.Minute),
		NextRun:     now.Add(15 * time.Minute),
		LastSuccess: now.Add(-30 * time.Minute),
		Enabled:     true,
	}

	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDIndexSync)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, task.ID, retrieved.ID)
	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, task.Interval, retrieved.Interval)
	assert.True(t, retrieved.Enabled)
	assert.True(t, task.LastRun.Equal(retrieved.LastRun))
	assert.True(t, task.NextRun.Equal(retrieved.NextRun))
}

func TestSchedulerStore_GetTask_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	task, err := store.SchedulerStore().GetTask(context.Background(), "non-existent")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: "test-task", Name: "Test Task", Interval: time.Hour, Enabled: true}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	task.Interval = 2 * time.Hour
	task.LastError = "source unavailable"
	task.Enabled = false
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, retrieved.Interval)
	assert.Equal(t, "source unavailable", retrieved.LastError)
	assert.False(t, retrieved.Enabled)
}

func TestSchedulerStore_SaveTask_NilTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SchedulerStore().SaveTask(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSchedulerStore_ListAndDeleteTasks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	tasks, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id, Interval: time.Minute}))
	}

	tasks, err = schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	require.NoError(t, schedulerStore.DeleteTask(ctx, "a"))
	tasks, err = schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "b", tasks[0].ID)
}

func TestSchedulerStore_RecordResultAndHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC()
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID: "t", StartedAt: now, EndedAt: now.Add(time.Second), Success: true, ItemsProcessed: 12,
	}))
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID: "t", StartedAt: now.Add(time.Minute), EndedAt: now.Add(time.Minute), Error: "sync failed",
	}))

	history, err := schedulerStore.GetTaskHistory(ctx, "t", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Success)
	assert.Equal(t, "sync failed", history[0].Error)
	assert.True(t, history[1].Success)
	assert.Equal(t, 12, history[1].ItemsProcessed)
	assert.True(t, now.Equal(history[1].StartedAt))

	history, err = schedulerStore.GetTaskHistory(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSchedulerStore_RecordResult_NilResult(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SchedulerStore().RecordResult(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSchedulerStore_PruneHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	// Sub-second spacing exercises the fixed-width time layout ordering.
	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 10; i++ {
		started := now.Add(time.Duration(i) * 500 * time.Millisecond)
		require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
			TaskID:         "prune-task",
			StartedAt:      started,
			EndedAt:        started,
			Success:        true,
			ItemsProcessed: i + 1,
		}))
	}

	require.NoError(t, schedulerStore.PruneHistory(ctx, 3))

	history, err := schedulerStore.GetTaskHistory(ctx, "prune-task", 100)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 10, history[0].ItemsProcessed)
	assert.Equal(t, 9, history[1].ItemsProcessed)
	assert.Equal(t, 8, history[2].ItemsProcessed)
}

func TestSchedulerStore_TaskWithZeroTimes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: "z", Name: "New", Interval: time.Hour}))

	retrieved, err := schedulerStore.GetTask(ctx, "z")
	require.NoError(t, err)
	assert.True(t, retrieved.LastRun.IsZero())
	assert.True(t, retrieved.NextRun.IsZero())
	assert.True(t, retrieved.LastSuccess.IsZero())
}

func TestSchedulerStore_RecordsStreamReports(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC()
	wm := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID:         domain.TaskIDIndexSync,
		RunID:          "run-42",
		StartedAt:      now,
		EndedAt:        now.Add(time.Second),
		Success:        true,
		ItemsProcessed: 9,
		Streams: map[domain.Stream]domain.StreamReport{
			domain.StreamRelational: {
				Extracted: 7, Indexed: 6, IndexFailed: 1, Deleted: 2,
				Failed:    []domain.EntityType{domain.EntityTeam, domain.EntityEvent},
				Watermark: wm,
				Error:     "extract teams: timeout",
			},
			domain.StreamForum: {
				Extracted: 1, Indexed: 1, Completed: true, Advanced: true, Watermark: wm.Add(time.Hour),
			},
		},
	}))

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDIndexSync, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "run-42", history[0].RunID)
	require.Len(t, history[0].Streams, 2)

	rel := history[0].Streams[domain.StreamRelational]
	assert.Equal(t, 7, rel.Extracted)
	assert.Equal(t, 6, rel.Indexed)
	assert.Equal(t, 1, rel.IndexFailed)
	assert.Equal(t, 2, rel.Deleted)
	assert.Equal(t, []domain.EntityType{domain.EntityEvent, domain.EntityTeam}, rel.Failed)
	assert.False(t, rel.Completed)
	assert.False(t, rel.Advanced)
	assert.True(t, wm.Equal(rel.Watermark))
	assert.Equal(t, "extract teams: timeout", rel.Error)

	forum := history[0].Streams[domain.StreamForum]
	assert.True(t, forum.Completed)
	assert.True(t, forum.Advanced)
	assert.Empty(t, forum.Failed)
	assert.True(t, wm.Add(time.Hour).Equal(forum.Watermark))
}

func TestSchedulerStore_PruneDropsStreamReports(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
			TaskID:    domain.TaskIDIndexSync,
			StartedAt: now.Add(time.Duration(i) * time.Minute),
			EndedAt:   now.Add(time.Duration(i) * time.Minute),
			Streams: map[domain.Stream]domain.StreamReport{
				domain.StreamForum: {Indexed: i},
			},
		}))
	}
	require.NoError(t, schedulerStore.PruneHistory(ctx, 1))

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM task_stream_results`).Scan(&n))
	assert.Equal(t, 1, n)

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDIndexSync, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Streams[domain.StreamForum].Indexed)
}

func TestSchedulerStore_RejectsCorruptStreamRow(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC()
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID: domain.TaskIDIndexSync, StartedAt: now, EndedAt: now,
		Streams: map[domain.Stream]domain.StreamReport{domain.StreamRelational: {}},
	}))
	_, err := store.db.Exec(`UPDATE task_stream_results SET failed_entities = 'member,widget'`)
	require.NoError(t, err)

	_, err = schedulerStore.GetTaskHistory(ctx, domain.TaskIDIndexSync, 10)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

// ==================== Helper Function Tests ====================

func TestTimeOrNull(t *testing.T) {
	assert.Nil(t, timeOrNull(time.Time{}))

	ts := time.Date(2024, 5, 1, 10, 0, 0, 5, time.FixedZone("x", 7200))
	assert.Equal(t, "2024-05-01T08:00:00.000000005Z", timeOrNull(ts))
}

func TestEntityList(t *testing.T) {
	assert.Equal(t, "", joinEntities(nil))
	assert.Equal(t, "event,member", joinEntities([]domain.EntityType{domain.EntityMember, domain.EntityEvent}))

	entities, err := splitEntities("event,member")
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityType{domain.EntityEvent, domain.EntityMember}, entities)

	entities, err = splitEntities("")
	require.NoError(t, err)
	assert.Nil(t, entities)
}

func TestTextOrNull(t *testing.T) {
	assert.Nil(t, textOrNull(""))
	assert.Equal(t, "hello", textOrNull("hello"))
}
