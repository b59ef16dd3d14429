package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store provides append-only operations for activity events.
type Store struct {
	db    *gorm.DB
	actor string
}

// NewStore creates a new Store. actor is recorded on every event; an empty
// actor is stored as "system".
func NewStore(db *gorm.DB, actor string) *Store {
	if actor == "" {
		actor = "system"
	}
	return &Store{db: db, actor: actor}
}

// AutoMigrate creates or updates the activity_events table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Event{})
}

// Record appends an event for a data entity. oldValue and newValue are
// stored as JSON; nil values are left empty.
func (s *Store) Record(ctx context.Context, entityID int64, eventType EventType, oldValue, newValue any) error {
	event := &Event{
		ID:        uuid.New().String(),
		EntityID:  entityID,
		EventType: eventType,
		Actor:     s.actor,
	}
	var err error
	if event.OldValue, err = encode(oldValue); err != nil {
		return err
	}
	if event.NewValue, err = encode(newValue); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append activity event: %w", err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode activity value: %w", err)
	}
	return data, nil
}

// ListByEntity returns paginated events of a data entity, newest first.
// pageToken is an RFC3339 timestamp; events created before it are returned.
func (s *Store) ListByEntity(ctx context.Context, entityID int64, pageSize int, pageToken string) ([]Event, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := s.db.WithContext(ctx).Model(&Event{}).Where("data_entity_id = ?", entityID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count activity events: %w", err)
	}

	query := s.db.WithContext(ctx).Where("data_entity_id = ?", entityID).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list activity events: %w", err)
	}

	var nextToken string
	if len(events) > pageSize {
		nextToken = events[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		events = events[:pageSize]
	}

	return events, nextToken, int(totalSize), nil
}

// DeleteOlderThan deletes events created before the given cutoff time.
// Returns the number of deleted events.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old activity events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
