package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MigrationLocker serializes schema migrations across replicas.
type MigrationLocker interface {
	// WithLock executes fn while holding the migration lock.
	// It blocks until the lock is acquired, then releases it after fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

const migrationLockName = "data-catalog-migration"

// NewMigrationLocker creates a MigrationLocker appropriate for the database
// dialect. PostgreSQL uses advisory locks; other databases use a lock table.
func NewMigrationLocker(db *gorm.DB) MigrationLocker {
	if db == nil {
		return &noopMigrationLock{}
	}
	if db.Dialector.Name() == "postgres" {
		return &pgAdvisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte(migrationLockName))),
		}
	}
	// The table must exist before the first concurrent WithLock call.
	_ = db.AutoMigrate(&migrationLockRecord{})
	return &tableMigrationLock{
		db:            db,
		holder:        uuid.New().String(),
		maxRetries:    30,
		retryInterval: time.Second,
		staleAge:      5 * time.Minute,
	}
}

// Migrate runs the migrations under the lock when enabled.
func Migrate(ctx context.Context, db *gorm.DB, enabled bool, migrate func() error) error {
	if !enabled {
		return migrate()
	}
	return NewMigrationLocker(db).WithLock(ctx, migrate)
}

type noopMigrationLock struct{}

func (n *noopMigrationLock) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

type pgAdvisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *pgAdvisoryLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", l.lockID).Error; err != nil {
		return fmt.Errorf("acquire migration advisory lock: %w", err)
	}
	defer func() {
		_ = l.db.Exec("SELECT pg_advisory_unlock(?)", l.lockID).Error
	}()
	return fn()
}

type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRecord) TableName() string { return "migration_lock" }

// tableMigrationLock holds the lock by owning the single row of the lock
// table. Rows older than staleAge are taken over.
type tableMigrationLock struct {
	db            *gorm.DB
	holder        string
	maxRetries    int
	retryInterval time.Duration
	staleAge      time.Duration
}

func (l *tableMigrationLock) WithLock(ctx context.Context, fn func() error) error {
	row := migrationLockRecord{ID: migrationLockName, LockedBy: l.holder}

	var lastErr error
	acquired := false
	for i := 0; i < l.maxRetries; i++ {
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", migrationLockName, time.Now().Add(-l.staleAge)).
			Delete(&migrationLockRecord{})

		row.LockedAt = time.Now()
		if lastErr = l.db.WithContext(ctx).Create(&row).Error; lastErr == nil {
			acquired = true
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
	if !acquired {
		return fmt.Errorf("acquire migration lock after %d retries: %w", l.maxRetries, lastErr)
	}

	defer func() {
		l.db.Where("id = ? AND locked_by = ?", migrationLockName, l.holder).Delete(&migrationLockRecord{})
	}()

	return fn()
}
