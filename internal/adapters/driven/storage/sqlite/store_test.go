package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		defer store.Close()

		assert.Contains(t, store.Path(), dir)
	})

	t.Run("reopening is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.SourceStore().Save(context.Background(), domain.Source{
			ID: "src", Type: "notion", Name: "KB",
		}))
		require.NoError(t, store.Close())

		// Migrations must not re-run destructively.
		store2, err := NewStore(dir)
		require.NoError(t, err)
		defer store2.Close()

		source, err := store2.SourceStore().Get(context.Background(), "src")
		require.NoError(t, err)
		assert.Equal(t, "KB", source.Name)
	})
}

func TestSourceStore(t *testing.T) {
	store := newTestStore(t)
	sources := store.SourceStore()
	ctx := context.Background()

	t.Run("save and get round trip", func(t *testing.T) {
		src := domain.Source{
			ID:   "kb",
			Type: "notion",
			Name: "Knowledge Base",
			Config: map[string]string{
				"token":        "secret_x",
				"database_ids": "db-1,db-2",
			},
		}
		require.NoError(t, sources.Save(ctx, src))

		got, err := sources.Get(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, src.Type, got.Type)
		assert.Equal(t, src.Name, got.Name)
		assert.Equal(t, src.Config, got.Config)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("update keeps created_at", func(t *testing.T) {
		first, err := sources.Get(ctx, "kb")
		require.NoError(t, err)

		updated := *first
		updated.Name = "Renamed"
		require.NoError(t, sources.Save(ctx, updated))

		got, err := sources.Get(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, first.CreatedAt.Unix(), got.CreatedAt.Unix())
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := sources.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, sources.Save(ctx, domain.Source{ID: "dir", Type: "filesystem", Name: "Docs"}))

		all, err := sources.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, sources.Delete(ctx, "dir"))
		all, err = sources.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestSyncStateStore(t *testing.T) {
	store := newTestStore(t)
	states := store.SyncStateStore()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		lastSync := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, states.Save(ctx, domain.SyncState{
			SourceID: "kb",
			Cursor:   "cursor-1",
			LastSync: lastSync,
		}))

		got, err := states.Get(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, "cursor-1", got.Cursor)
		assert.Equal(t, lastSync.Unix(), got.LastSync.Unix())
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		require.NoError(t, states.Save(ctx, domain.SyncState{SourceID: "kb", Cursor: "cursor-2"}))

		got, err := states.Get(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, "cursor-2", got.Cursor)
	})

	t.Run("missing and delete", func(t *testing.T) {
		_, err := states.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, states.Delete(ctx, "kb"))
		_, err = states.Get(ctx, "kb")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEntryStateStore(t *testing.T) {
	store := newTestStore(t)
	states := store.EntryStateStore()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		indexedAt := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, states.Save(ctx, domain.EntryState{
			SourceID:    "dir",
			EntryID:     "guide.md",
			ContentHash: "hash-1",
			IndexRef:    "file-1",
			Status:      domain.SyncStatusOK,
			IndexedAt:   indexedAt,
		}))

		got, err := states.Get(ctx, "dir", "guide.md")
		require.NoError(t, err)
		assert.Equal(t, "hash-1", got.ContentHash)
		assert.Equal(t, "file-1", got.IndexRef)
		assert.Equal(t, domain.SyncStatusOK, got.Status)
		assert.Equal(t, indexedAt.Unix(), got.IndexedAt.Unix())
	})

	t.Run("requires keys", func(t *testing.T) {
		err := states.Save(ctx, domain.EntryState{SourceID: "dir"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("list by source", func(t *testing.T) {
		require.NoError(t, states.Save(ctx, domain.EntryState{
			SourceID: "dir", EntryID: "b.md", Status: domain.SyncStatusError, Error: "boom",
		}))
		require.NoError(t, states.Save(ctx, domain.EntryState{
			SourceID: "other", EntryID: "a.md", Status: domain.SyncStatusOK,
		}))

		list, err := states.ListBySource(ctx, "dir")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b.md", list[0].EntryID, "ordered by entry id")
		assert.Equal(t, "boom", list[0].Error)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, states.Delete(ctx, "dir", "guide.md"))
		_, err := states.Get(ctx, "dir", "guide.md")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSchedulerStore(t *testing.T) {
	store := newTestStore(t)
	sched := store.SchedulerStore()
	ctx := context.Background()

	t.Run("missing task is nil without error", func(t *testing.T) {
		task, err := sched.GetTask(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("task round trip", func(t *testing.T) {
		nextRun := time.Now().Add(time.Hour).UTC()
		require.NoError(t, sched.SaveTask(ctx, &domain.ScheduledTask{
			ID:       domain.TaskIDEntrySync,
			Name:     "Entry Sync",
			Interval: time.Hour,
			NextRun:  nextRun,
			Enabled:  true,
		}))

		task, err := sched.GetTask(ctx, domain.TaskIDEntrySync)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, time.Hour, task.Interval)
		assert.True(t, task.Enabled)
		assert.Equal(t, nextRun.Unix(), task.NextRun.Unix())
		assert.True(t, task.LastRun.IsZero())

		tasks, err := sched.ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("history ordering and pruning", func(t *testing.T) {
		base := time.Now().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			require.NoError(t, sched.RecordResult(ctx, &domain.TaskResult{
				TaskID:         domain.TaskIDEntrySync,
				StartedAt:      base.Add(time.Duration(i) * time.Minute),
				EndedAt:        base.Add(time.Duration(i)*time.Minute + time.Second),
				Success:        i%2 == 0,
				ItemsProcessed: i,
			}))
		}

		history, err := sched.GetTaskHistory(ctx, domain.TaskIDEntrySync, 3)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, 4, history[0].ItemsProcessed, "most recent first")

		require.NoError(t, sched.PruneHistory(ctx, 2))
		history, err = sched.GetTaskHistory(ctx, domain.TaskIDEntrySync, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 4, history[0].ItemsProcessed)
		assert.Equal(t, 3, history[1].ItemsProcessed)
	})

	t.Run("delete task", func(t *testing.T) {
		require.NoError(t, sched.DeleteTask(ctx, domain.TaskIDEntrySync))
		task, err := sched.GetTask(ctx, domain.TaskIDEntrySync)
		require.NoError(t, err)
		assert.Nil(t, task)
	})
}
