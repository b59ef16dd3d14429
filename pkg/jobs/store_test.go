package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A unique shared-cache DSN per test keeps background goroutines on the
	// same database while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&SwitchRun{}))
	return db
}

func TestRunStoreLifecycle(t *testing.T) {
	store := NewRunStore(setupTestDB(t))
	ctx := context.Background()

	run, err := store.Start(ctx, "replica-a", time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStateRunning, run.State)

	require.NoError(t, store.Complete(ctx, run.ID, 3, 2, 15))
	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunStateSucceeded, got.State)
	assert.Equal(t, 3, got.Switched)
	assert.Equal(t, int64(2), got.Purged)
	assert.Equal(t, int64(15), got.DurationMs)
	assert.NotNil(t, got.FinishedAt)
	assert.True(t, got.IsTerminal())

	failed, err := store.Start(ctx, "replica-a", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Fail(ctx, failed.ID, "boom", 1))
	got, err = store.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStateFailed, got.State)
	assert.Equal(t, "boom", got.LastError)
}

func TestRunStoreGetMissing(t *testing.T) {
	store := NewRunStore(setupTestDB(t))
	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := NewRunStore(setupTestDB(t))
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.Start(ctx, "replica-a", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestRunStoreCleanupStuckRuns(t *testing.T) {
	store := NewRunStore(setupTestDB(t))
	ctx := context.Background()

	stuck, err := store.Start(ctx, "replica-a", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	fresh, err := store.Start(ctx, "replica-a", time.Now())
	require.NoError(t, err)

	recovered, err := store.CleanupStuckRuns(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), recovered)

	got, err := store.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStateFailed, got.State)

	got, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStateRunning, got.State)
}

func TestRunStoreDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db)
	ctx := context.Background()

	old, err := store.Start(ctx, "replica-a", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, old.ID, 0, 0, 1))
	require.NoError(t, db.Model(&SwitchRun{}).Where("id = ?", old.ID).
		Update("finished_at", time.Now().Add(-48*time.Hour)).Error)

	running, err := store.Start(ctx, "replica-a", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)

	deleted, err := store.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := store.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.NotNil(t, got, "running passes are never deleted")
}
