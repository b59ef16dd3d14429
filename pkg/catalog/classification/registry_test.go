package classification

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

func TestRoleOf(t *testing.T) {
	tests := []struct {
		name string
		id   entity.TypeID
		want entity.Role
	}{
		{"table", 1, entity.RoleDataset},
		{"job", 5, entity.RoleTransformer},
		{"job run", 6, entity.RoleTransformerRun},
		{"dashboard", 9, entity.RoleConsumer},
		{"api call", 17, entity.RoleInput},
		{"domain", DomainTypeID, entity.RoleGroup},
		{"expectation", 20, entity.RoleQualityTest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoleOf(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleOf_UnknownType(t *testing.T) {
	_, err := RoleOf(999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestTypesOf_OrderAndCopy(t *testing.T) {
	types := TypesOf(entity.RoleDataset)
	require.NotEmpty(t, types)
	assert.Equal(t, "TABLE", types[0].Name)
	assert.Equal(t, "FILE", types[1].Name)
	for _, ty := range types {
		assert.Equal(t, entity.RoleDataset, ty.Role)
	}

	types[0].Name = "mutated"
	assert.Equal(t, "TABLE", TypesOf(entity.RoleDataset)[0].Name)
}

func TestAllRoles(t *testing.T) {
	roles := AllRoles()
	assert.Equal(t, []entity.Role{
		entity.RoleDataset,
		entity.RoleTransformer,
		entity.RoleTransformerRun,
		entity.RoleQualityTest,
		entity.RoleQualityTestRun,
		entity.RoleConsumer,
		entity.RoleInput,
		entity.RoleGroup,
	}, roles)
	assert.Equal(t, 8, ClassID(entity.RoleGroup))
	assert.Equal(t, 0, ClassID("NOPE"))
}

func TestEveryRoleHasTypes(t *testing.T) {
	for _, r := range AllRoles() {
		assert.NotEmpty(t, TypesOf(r), "role %s", r)
	}
}

func TestGetDictionary_Singleton(t *testing.T) {
	const callers = 16
	results := make([]*Dictionary, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := GetDictionary()
			if err == nil {
				results[i] = d
			}
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Len(t, results[0].Classes, 8)
	assert.Len(t, results[0].Types, len(typeTable))
}

func TestLookupName(t *testing.T) {
	ty, ok := LookupName("KAFKA_TOPIC")
	require.True(t, ok)
	assert.Equal(t, entity.TypeID(4), ty.ID)

	_, ok = LookupName("MISSING")
	assert.False(t, ok)
}
