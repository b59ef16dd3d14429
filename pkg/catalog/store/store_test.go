package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// newTestStore creates an isolated in-memory SQLite store with all tables
// migrated.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func seed(t *testing.T, s *Store, oddrn string, typeID entity.TypeID, roles ...entity.Role) *entity.Asset {
	t.Helper()
	a := &entity.Asset{
		Oddrn:        oddrn,
		ExternalName: oddrn,
		TypeID:       typeID,
		Roles:        roles,
		Status:       entity.StatusUnassigned,
	}
	require.NoError(t, s.CreateAsset(context.Background(), a))
	require.NotZero(t, a.ID)
	return a
}

func edge(t *testing.T, s *Store, group, member string, manual bool) {
	t.Helper()
	created, err := s.CreateEdge(context.Background(), entity.GroupEdge{GroupOddrn: group, EntityOddrn: member, Manual: manual})
	require.NoError(t, err)
	require.True(t, created)
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &entity.Asset{
		Oddrn:        "//pg/orders",
		ExternalName: "orders",
		TypeID:       1,
		Roles:        []entity.Role{entity.RoleDataset},
		Attributes: map[entity.Role]json.RawMessage{
			entity.RoleDataset: json.RawMessage(`{"rows_count":10,"fields_count":2}`),
		},
	}
	require.NoError(t, s.CreateAsset(ctx, a))

	got, err := s.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "//pg/orders", got.Oddrn)
	assert.Equal(t, entity.StatusUnassigned, got.Status)
	assert.Equal(t, []entity.Role{entity.RoleDataset}, got.Roles)
	assert.JSONEq(t, `{"rows_count":10,"fields_count":2}`, string(got.Attributes[entity.RoleDataset]))

	byOddrn, err := s.GetAssetByOddrn(ctx, "//pg/orders")
	require.NoError(t, err)
	require.NotNil(t, byOddrn)
	assert.Equal(t, a.ID, byOddrn.ID)

	missing, err := s.GetAsset(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_FetchAssetsSkipsHollowAndDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	live := seed(t, s, "//live", 1, entity.RoleDataset)
	gone := seed(t, s, "//gone", 1, entity.RoleDataset)
	require.NoError(t, s.CreateHollow(ctx, []string{"//hollow", "//live"}))
	_, err := s.SoftDelete(ctx, []int64{gone.ID})
	require.NoError(t, err)

	got, err := s.FetchAssets(ctx, []string{"//live", "//gone", "//hollow", "//unknown"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)

	empty, err := s.FetchAssets(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_IngestAssetsUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateHollow(ctx, []string{"//t"}))
	require.NoError(t, s.IngestAssets(ctx, []entity.Asset{{
		Oddrn:        "//t",
		ExternalName: "t",
		TypeID:       1,
		Roles:        []entity.Role{entity.RoleDataset},
	}}))

	got, err := s.GetAssetByOddrn(ctx, "//t")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Hollow)
	assert.Equal(t, "t", got.ExternalName)
	assert.NotNil(t, got.LastIngestedAt)

	require.NoError(t, s.SetInternalName(ctx, got.ID, "business name"))
	require.NoError(t, s.IngestAssets(ctx, []entity.Asset{{
		Oddrn:        "//t",
		ExternalName: "t2",
		TypeID:       1,
		Roles:        []entity.Role{entity.RoleDataset},
	}}))
	again, err := s.GetAssetByOddrn(ctx, "//t")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, "t2", again.ExternalName)
	assert.Equal(t, "business name", again.InternalName)
}

func TestStore_IngestAssetsRevivesSoftDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ingest := func(name string) {
		require.NoError(t, s.IngestAssets(ctx, []entity.Asset{{
			Oddrn:        "//db/x",
			ExternalName: name,
			TypeID:       1,
			Roles:        []entity.Role{entity.RoleDataset},
		}}))
	}

	ingest("x")
	first, err := s.GetAssetByOddrn(ctx, "//db/x")
	require.NoError(t, err)
	require.NotNil(t, first)

	switchAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.SaveStatuses(ctx, []entity.StatusRecord{
		{ID: first.ID, Status: entity.StatusDeleted, SwitchTime: &switchAt, StatusUpdatedAt: &switchAt},
	}))
	n, err := s.SoftDelete(ctx, []int64{first.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	gone, err := s.GetAsset(ctx, first.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	ingest("x2")
	got, err := s.GetAsset(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "re-ingested entity is visible again")
	assert.Equal(t, "x2", got.ExternalName)
	assert.Equal(t, entity.StatusUnassigned, got.Status)
	assert.Nil(t, got.StatusSwitchTime)

	fetched, err := s.FetchAssets(ctx, []string{"//db/x"})
	require.NoError(t, err)
	assert.Len(t, fetched, 1)

	// Live entities keep their status on re-ingestion.
	require.NoError(t, s.SaveStatuses(ctx, []entity.StatusRecord{{ID: first.ID, Status: entity.StatusStable}}))
	ingest("x3")
	got, err = s.GetAsset(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusStable, got.Status)
}

func TestStore_ListAssetsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seed(t, s, fmt.Sprintf("//e%d", i), 1, entity.RoleDataset)
	}

	page1, token, err := s.ListAssets(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.NotZero(t, token)

	page2, token, err := s.ListAssets(ctx, 2, token)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	page3, token, err := s.ListAssets(ctx, 2, token)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Zero(t, token)
}

func TestStore_IncrementViewCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seed(t, s, "//v", 1, entity.RoleDataset)

	n, err := s.IncrementViewCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.IncrementViewCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.IncrementViewCount(ctx, 12345)
	assert.True(t, entity.IsNotFound(err))
}

func TestStore_GroupQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// g -> a, b ; b -> c ; c -> d, e ; a -> d
	seed(t, s, "//g", 16, entity.RoleGroup)
	seed(t, s, "//a", 1, entity.RoleDataset)
	seed(t, s, "//b", 10, entity.RoleGroup)
	seed(t, s, "//c", 10, entity.RoleGroup)
	seed(t, s, "//d", 1, entity.RoleDataset)
	seed(t, s, "//e", 1, entity.RoleDataset)
	edge(t, s, "//g", "//a", true)
	edge(t, s, "//g", "//b", true)
	edge(t, s, "//b", "//c", false)
	edge(t, s, "//c", "//d", false)
	edge(t, s, "//c", "//e", false)
	edge(t, s, "//a", "//d", false)

	members, err := s.FetchGroupMembers(ctx, []string{"//g", "//c", "//d"})
	require.NoError(t, err)
	assert.Len(t, members["//g"], 2)
	assert.Len(t, members["//c"], 2)
	assert.NotContains(t, members, "//d")

	counts, err := s.CountGroupDescendants(ctx, []string{"//g", "//b", "//c"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["//g"]) // c, d, e
	assert.Equal(t, int64(2), counts["//b"]) // d, e
	assert.NotContains(t, counts, "//c")

	parents, err := s.FetchParentGroups(ctx, []string{"//d", "//g"})
	require.NoError(t, err)
	require.Len(t, parents["//d"], 2)
	assert.NotContains(t, parents, "//g")

	ok, err := s.IsAncestor(ctx, "//g", "//d")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsAncestor(ctx, "//d", "//g")
	require.NoError(t, err)
	assert.False(t, ok)

	oddrns, err := s.MemberOddrns(ctx, "//c")
	require.NoError(t, err)
	assert.Equal(t, []string{"//d", "//e"}, oddrns)
}

func TestStore_DescendantCountTerminatesOnDerivedCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed(t, s, "//x", 10, entity.RoleGroup)
	seed(t, s, "//y", 10, entity.RoleGroup)
	seed(t, s, "//z", 10, entity.RoleGroup)
	edge(t, s, "//x", "//y", false)
	edge(t, s, "//y", "//z", false)
	edge(t, s, "//z", "//x", false)

	counts, err := s.CountGroupDescendants(ctx, []string{"//x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["//x"]) // z only

	ok, err := s.IsAncestor(ctx, "//x", "//x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_EdgeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEdge(ctx, entity.GroupEdge{GroupOddrn: "//g", EntityOddrn: "//m", Manual: true})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateEdge(ctx, entity.GroupEdge{GroupOddrn: "//g", EntityOddrn: "//m", Manual: true})
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := s.EdgeExists(ctx, "//g", "//m")
	require.NoError(t, err)
	assert.True(t, exists)

	edge(t, s, "//h", "//m", false)
	edges, err := s.ParentEdges(ctx, "//m")
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupEdge{
		{GroupOddrn: "//g", EntityOddrn: "//m", Manual: true},
		{GroupOddrn: "//h", EntityOddrn: "//m", Manual: false},
	}, edges)

	n, err := s.DeleteEdge(ctx, "//g", "//m")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.DeleteEdge(ctx, "//g", "//m")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ListGroupMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "//g", 16, entity.RoleGroup)
	for i := 0; i < 3; i++ {
		o := fmt.Sprintf("//m%d", i)
		seed(t, s, o, 1, entity.RoleDataset)
		edge(t, s, "//g", o, true)
	}

	page, total, err := s.ListGroupMembers(ctx, "//g", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	page, _, err = s.ListGroupMembers(ctx, "//g", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestStore_FilledMarkers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkFilled(ctx, 1, FilledCustomGroup))
	require.NoError(t, s.MarkFilled(ctx, 1, FilledCustomGroup))
	require.NoError(t, s.MarkFilled(ctx, 1, FilledInternalName))
	require.NoError(t, s.MarkFilled(ctx, 2, FilledInternalName))

	ok, err := s.IsFilled(ctx, 1, FilledCustomGroup)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.CountFilled(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.MarkUnfilled(ctx, 1, FilledCustomGroup))
	ok, err = s.IsFilled(ctx, 1, FilledCustomGroup)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveStatuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seed(t, s, "//a", 1, entity.RoleDataset)
	b := seed(t, s, "//b", 1, entity.RoleDataset)

	switchAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SaveStatuses(ctx, []entity.StatusRecord{
		{ID: a.ID, Status: entity.StatusDeprecated, SwitchTime: &switchAt, StatusUpdatedAt: &now},
		{ID: b.ID, Status: entity.StatusStable, StatusUpdatedAt: &now},
	}))

	gotA, err := s.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDeprecated, gotA.Status)
	require.NotNil(t, gotA.StatusSwitchTime)
	assert.True(t, switchAt.Equal(*gotA.StatusSwitchTime))

	gotB, err := s.GetAsset(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusStable, gotB.Status)
	assert.Nil(t, gotB.StatusSwitchTime)
}

func TestStore_SaveStatusesIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seed(t, s, "//g", 16, entity.RoleGroup)
	m1 := seed(t, s, "//m1", 1, entity.RoleDataset)
	m2 := seed(t, s, "//m2", 1, entity.RoleDataset)

	require.NoError(t, s.DB().Exec(`
		CREATE TRIGGER fail_m2 BEFORE UPDATE OF status ON data_entity
		WHEN NEW.oddrn = '//m2'
		BEGIN SELECT RAISE(ABORT, 'simulated failure'); END;`).Error)

	err := s.SaveStatuses(ctx, []entity.StatusRecord{
		{ID: g.ID, Status: entity.StatusStable},
		{ID: m1.ID, Status: entity.StatusStable},
		{ID: m2.ID, Status: entity.StatusStable},
	})
	require.Error(t, err)

	for _, id := range []int64{g.ID, m1.ID, m2.ID} {
		got, err := s.GetAsset(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusUnassigned, got.Status, "entity %d", id)
	}
}

func TestStore_ListForStatusSwitch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := seed(t, s, "//due", 1, entity.RoleDataset)
	later := seed(t, s, "//later", 1, entity.RoleDataset)
	stable := seed(t, s, "//stable", 1, entity.RoleDataset)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, s.SaveStatuses(ctx, []entity.StatusRecord{
		{ID: due.ID, Status: entity.StatusDeprecated, SwitchTime: &past},
		{ID: later.ID, Status: entity.StatusDeleted, SwitchTime: &future},
		{ID: stable.ID, Status: entity.StatusStable, SwitchTime: &past},
	}))

	got, err := s.ListForStatusSwitch(ctx, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestStore_LineageConsumers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "//ds", 1, entity.RoleDataset)
	seed(t, s, "//dash1", 9, entity.RoleConsumer)
	seed(t, s, "//dash2", 9, entity.RoleConsumer)
	require.NoError(t, s.CreateHollow(ctx, []string{"//pending"}))

	require.NoError(t, s.AddLineage(ctx, "//ds", "//dash1", "//dash1"))
	require.NoError(t, s.AddLineage(ctx, "//ds", "//dash1", "//job"))
	require.NoError(t, s.AddLineage(ctx, "//ds", "//dash2", "//dash2"))
	require.NoError(t, s.AddLineage(ctx, "//ds", "//pending", "//pending"))
	require.NoError(t, s.AddLineage(ctx, "//ds", "//dash2", "//dash2"))

	counts, err := s.CountConsumers(ctx, []string{"//ds", "//other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"//ds": 2}, counts)
}

func TestStore_LatestRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveTaskRun(ctx, &entity.TaskRun{TaskOddrn: "//qt", Status: entity.RunFailed, StartTime: base}))
	latest := &entity.TaskRun{TaskOddrn: "//qt", Status: entity.RunSuccess, StartTime: base.Add(time.Hour)}
	require.NoError(t, s.SaveTaskRun(ctx, latest))
	require.NotEmpty(t, latest.ID)
	require.NoError(t, s.SaveTaskRun(ctx, &entity.TaskRun{TaskOddrn: "//other", Status: entity.RunBroken, StartTime: base}))

	runs, err := s.FetchLatestRuns(ctx, []string{"//qt", "//none"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs["//qt"])
	assert.Equal(t, latest.ID, runs["//qt"].ID)
	assert.Equal(t, entity.RunSuccess, runs["//qt"].Status)
}

func TestStore_Severities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LinkQualityTest(ctx, "//ds", "//qt1"))
	require.NoError(t, s.LinkQualityTest(ctx, "//ds", "//qt2"))
	require.NoError(t, s.SetSeverity(ctx, "//ds", "//qt1", entity.SeverityMinor))
	require.NoError(t, s.SetSeverity(ctx, "//ds", "//qt1", entity.SeverityCritical))

	tests, err := s.QualityTestOddrns(ctx, "//ds")
	require.NoError(t, err)
	assert.Equal(t, []string{"//qt1", "//qt2"}, tests)

	sev, err := s.FetchSeverities(ctx, "//ds", tests)
	require.NoError(t, err)
	assert.Equal(t, map[string]entity.Severity{"//qt1": entity.SeverityCritical}, sev)
}

func TestStore_StatisticsAndDomains(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "//t1", 1, entity.RoleDataset)
	seed(t, s, "//t2", 1, entity.RoleDataset, entity.RoleTransformer)
	seed(t, s, "//dom", 16, entity.RoleGroup)
	edge(t, s, "//dom", "//t1", true)
	require.NoError(t, s.CreateHollow(ctx, []string{"//h"}))

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(2), st.ByRoleAndType[entity.RoleDataset][1])
	assert.Equal(t, int64(1), st.ByRoleAndType[entity.RoleTransformer][1])

	domains, err := s.Domains(ctx, 16)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "//dom", domains[0].Domain.Oddrn)
	assert.Equal(t, int64(1), domains[0].ChildrenCount)
}
