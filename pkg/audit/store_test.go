package audit

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

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewStore(db, "")
	require.NoError(t, s.AutoMigrate())
	return s, db
}

func TestStore_RecordAndList(t *testing.T) {
	s, db := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, 1, EventBusinessNameUpdated, "orders", "Orders"))
	require.NoError(t, s.Record(ctx, 1, EventStatusUpdated, map[string]string{"status": "DRAFT"}, map[string]string{"status": "STABLE"}))
	require.NoError(t, s.Record(ctx, 2, EventCustomGroupUpdated, nil, "//groups/finance"))

	// Spread creation times so the ordering is deterministic.
	base := time.Now().Add(-time.Hour)
	var events []Event
	require.NoError(t, db.Order("event_type").Find(&events).Error)
	for i := range events {
		require.NoError(t, db.Model(&Event{}).Where("id = ?", events[i].ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	got, next, total, err := s.ListByEntity(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, next)
	require.Len(t, got, 2)
	assert.Equal(t, EventStatusUpdated, got[0].EventType)
	assert.Equal(t, "system", got[0].Actor)
	assert.JSONEq(t, `{"status":"STABLE"}`, string(got[0].NewValue))
	assert.JSONEq(t, `"orders"`, string(got[1].OldValue))

	other, _, total, err := s.ListByEntity(ctx, 2, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, other, 1)
	assert.Empty(t, other[0].OldValue)
}

func TestStore_ListByEntityPagination(t *testing.T) {
	s, db := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&Event{
			ID:        uuid.New().String(),
			EntityID:  7,
			EventType: EventStatusUpdated,
			Actor:     "test",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	first, next, total, err := s.ListByEntity(ctx, 7, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, first, 2)
	require.NotEmpty(t, next)

	second, next, _, err := s.ListByEntity(ctx, 7, 2, next)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.True(t, second[0].CreatedAt.Before(first[1].CreatedAt))

	last, next, _, err := s.ListByEntity(ctx, 7, 2, next)
	require.NoError(t, err)
	assert.Len(t, last, 1)
	assert.Empty(t, next)

	_, _, _, err = s.ListByEntity(ctx, 7, 2, "not-a-time")
	assert.Error(t, err)
}

func TestRetentionWorker_Cleanup(t *testing.T) {
	s, db := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{40 * 24 * time.Hour, 10 * 24 * time.Hour, time.Hour} {
		require.NoError(t, db.Create(&Event{
			ID:        uuid.New().String(),
			EntityID:  1,
			EventType: EventStatusUpdated,
			Actor:     "test",
			CreatedAt: now.Add(-age),
		}).Error)
	}

	w := NewRetentionWorker(s, 30, nil)
	assert.Equal(t, 30*24*time.Hour, w.retention)
	assert.Equal(t, 24*time.Hour, w.interval)
	assert.Equal(t, int64(1), w.Cleanup(ctx, now))
	assert.Equal(t, int64(0), w.Cleanup(ctx, now))

	_, _, total, err := s.ListByEntity(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRetentionWorker_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewRetentionWorker(nil, 30, nil).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
}
