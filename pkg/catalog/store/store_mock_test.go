package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewStore(db), mock
}

func TestSaveStatuses_RollsBackOnWriteFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "data_entity" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "data_entity" SET`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.SaveStatuses(context.Background(), []entity.StatusRecord{
		{ID: 1, Status: entity.StatusStable},
		{ID: 2, Status: entity.StatusStable},
		{ID: 3, Status: entity.StatusStable},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save status of data entity 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountConsumers_PropagatesQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT l.parent_oddrn`).WillReturnError(errors.New("timeout"))

	_, err := s.CountConsumers(context.Background(), []string{"//ds"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count dataset consumers")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountConsumers_EmptyInputIssuesNoQuery(t *testing.T) {
	s, mock := newMockStore(t)

	got, err := s.CountConsumers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
