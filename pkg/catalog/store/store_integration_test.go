//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm/logger"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

func TestPostgresStore_GroupQueries(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("catalog"),
		tcpostgres.WithUsername("catalog"),
		tcpostgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open("postgres", dsn, logger.Silent)
	require.NoError(t, err)
	s := NewStore(db)
	require.NoError(t, s.AutoMigrate())

	for _, o := range []string{"//g", "//b", "//c", "//d"} {
		require.NoError(t, s.CreateAsset(ctx, &entity.Asset{Oddrn: o, TypeID: 10, Roles: []entity.Role{entity.RoleGroup}}))
	}
	for _, e := range [][2]string{{"//g", "//b"}, {"//b", "//c"}, {"//c", "//d"}, {"//d", "//b"}} {
		_, err := s.CreateEdge(ctx, entity.GroupEdge{GroupOddrn: e[0], EntityOddrn: e[1]})
		require.NoError(t, err)
	}

	counts, err := s.CountGroupDescendants(ctx, []string{"//g"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["//g"])

	ok, err := s.IsAncestor(ctx, "//g", "//d")
	require.NoError(t, err)
	assert.True(t, ok)

	past := time.Now().Add(-time.Minute)
	g, err := s.GetAssetByOddrn(ctx, "//g")
	require.NoError(t, err)
	require.NoError(t, s.SaveStatuses(ctx, []entity.StatusRecord{{ID: g.ID, Status: entity.StatusDeprecated, SwitchTime: &past}}))
	due, err := s.ListForStatusSwitch(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
}
