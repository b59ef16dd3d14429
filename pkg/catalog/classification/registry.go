// Package classification is the static dictionary of data entity roles and
// the fine-grained types nested under them.
package classification

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// ErrUnknownType is returned for a type id missing from the dictionary.
var ErrUnknownType = errors.New("unknown data entity type")

// Class is a role with its numeric id and display name.
type Class struct {
	ID    int         `json:"id"`
	Role  entity.Role `json:"name"`
	Types []Type      `json:"types"`
}

// Type is a fine-grained data entity type. Every type has exactly one
// primary role.
type Type struct {
	ID   entity.TypeID `json:"id"`
	Name string        `json:"name"`
	Role entity.Role   `json:"-"`
}

// Dictionary lists all classes with their types, and all types.
type Dictionary struct {
	Classes []Class `json:"entityClasses"`
	Types   []Type  `json:"types"`
}

var classIDs = []struct {
	id   int
	role entity.Role
}{
	{1, entity.RoleDataset},
	{2, entity.RoleTransformer},
	{3, entity.RoleTransformerRun},
	{4, entity.RoleQualityTest},
	{5, entity.RoleQualityTestRun},
	{6, entity.RoleConsumer},
	{7, entity.RoleInput},
	{8, entity.RoleGroup},
}

var typeTable = []Type{
	{1, "TABLE", entity.RoleDataset},
	{2, "FILE", entity.RoleDataset},
	{3, "FEATURE_GROUP", entity.RoleDataset},
	{4, "KAFKA_TOPIC", entity.RoleDataset},
	{5, "JOB", entity.RoleTransformer},
	{6, "JOB_RUN", entity.RoleTransformerRun},
	{7, "ML_MODEL_TRAINING", entity.RoleTransformer},
	{8, "ML_MODEL_INSTANCE", entity.RoleConsumer},
	{9, "DASHBOARD", entity.RoleConsumer},
	{10, "DAG", entity.RoleGroup},
	{11, "DATABASE_SERVICE", entity.RoleGroup},
	{12, "API_SERVICE", entity.RoleInput},
	{13, "KAFKA_SERVICE", entity.RoleGroup},
	{14, "MICROSERVICE", entity.RoleGroup},
	{15, "ML_EXPERIMENT", entity.RoleGroup},
	{16, "DOMAIN", entity.RoleGroup},
	{17, "API_CALL", entity.RoleInput},
	{18, "VIEW", entity.RoleDataset},
	{19, "VECTOR_STORE", entity.RoleDataset},
	{20, "EXPECTATION", entity.RoleQualityTest},
	{21, "EXPECTATION_RUN", entity.RoleQualityTestRun},
	{22, "ML_MODEL_ARTIFACT", entity.RoleDataset},
}

// DomainTypeID is the type assigned to manually created groups.
const DomainTypeID entity.TypeID = 16

type registry struct {
	roles  []entity.Role
	byID   map[entity.TypeID]Type
	byRole map[entity.Role][]Type
	byName map[string]Type
	dict   *Dictionary
}

func build() (*registry, error) {
	r := &registry{
		byID:   make(map[entity.TypeID]Type, len(typeTable)),
		byRole: make(map[entity.Role][]Type, len(classIDs)),
		byName: make(map[string]Type, len(typeTable)),
	}
	for _, c := range classIDs {
		r.roles = append(r.roles, c.role)
		r.byRole[c.role] = nil
	}
	for _, t := range typeTable {
		if _, ok := r.byRole[t.Role]; !ok {
			return nil, fmt.Errorf("type %s references undeclared role %s", t.Name, t.Role)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate type id %d", t.ID)
		}
		r.byID[t.ID] = t
		r.byName[t.Name] = t
		r.byRole[t.Role] = append(r.byRole[t.Role], t)
	}

	dict := &Dictionary{Types: append([]Type(nil), typeTable...)}
	for _, c := range classIDs {
		dict.Classes = append(dict.Classes, Class{ID: c.id, Role: c.role, Types: r.byRole[c.role]})
	}
	r.dict = dict
	return r, nil
}

var load = sync.OnceValues(build)

// RoleOf returns the primary role of a type.
func RoleOf(id entity.TypeID) (entity.Role, error) {
	t, err := Lookup(id)
	if err != nil {
		return "", err
	}
	return t.Role, nil
}

// Lookup returns the type with the given id.
func Lookup(id entity.TypeID) (Type, error) {
	r, err := load()
	if err != nil {
		return Type{}, err
	}
	t, ok := r.byID[id]
	if !ok {
		return Type{}, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return t, nil
}

// LookupName returns the type with the given name.
func LookupName(name string) (Type, bool) {
	r, err := load()
	if err != nil {
		return Type{}, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// TypesOf returns the types nested under a role in dictionary order.
// The returned slice is a copy.
func TypesOf(role entity.Role) []Type {
	r, err := load()
	if err != nil {
		return nil
	}
	return append([]Type(nil), r.byRole[role]...)
}

// AllRoles returns every role in class id order.
func AllRoles() []entity.Role {
	r, err := load()
	if err != nil {
		return nil
	}
	return append([]entity.Role(nil), r.roles...)
}

// ClassID returns the numeric class id of a role, or 0 if unknown.
func ClassID(role entity.Role) int {
	for _, c := range classIDs {
		if c.role == role {
			return c.id
		}
	}
	return 0
}

// GetDictionary returns the class and type dictionary. The same value is
// returned on every call.
func GetDictionary() (*Dictionary, error) {
	r, err := load()
	if err != nil {
		return nil, err
	}
	return r.dict, nil
}
