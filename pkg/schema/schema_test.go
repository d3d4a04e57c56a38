package schema_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
	"github.com/pay-theory/dynaquery/pkg/schema"
)

const schemaYAML = `
tables:
  - name: myTable
    partitionKey: userId
    sortKey: dataTimestamp
    attributes:
      dataTimestamp: N
    indexes:
      - name: byStatus
        partitionKey: status
        sortKey: dataTimestamp
      - name: byName
        local: true
        sortKey: name
  - name: sessions
    partitionKey: id
`

func loadRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load(strings.NewReader(schemaYAML))
	require.NoError(t, err)
	return reg
}

func TestLoad(t *testing.T) {
	reg := loadRegistry(t)

	assert.Equal(t, []string{"myTable", "sessions"}, reg.Names())
	assert.True(t, reg.Has("myTable"))
	assert.False(t, reg.Has("other"))

	tbl, err := reg.Table("myTable")
	require.NoError(t, err)
	assert.Equal(t, "userId", tbl.PartitionKey)
	assert.Equal(t, "dataTimestamp", tbl.SortKey)
	require.Len(t, tbl.Indexes, 2)
	assert.Equal(t, "userId", tbl.Indexes[1].PartitionKey, "local index inherits the table partition key")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"missing table name", "tables:\n  - partitionKey: id\n", errors.ErrMissingTableName},
		{"missing partition key", "tables:\n  - name: t\n", errors.ErrMissingPrimaryKey},
		{"bad attribute type", "tables:\n  - name: t\n    partitionKey: id\n    attributes:\n      id: X\n", errors.ErrInvalidAttributeType},
		{"local index with other partition key", "tables:\n  - name: t\n    partitionKey: id\n    indexes:\n      - name: i\n        local: true\n        partitionKey: other\n        sortKey: s\n", errors.ErrInvalidPrimaryKey},
		{"short index name", "tables:\n  - name: t\n    partitionKey: id\n    indexes:\n      - name: ix\n        partitionKey: s\n", errors.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Load(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := schema.Load(strings.NewReader("tables:\n  - name: t\n    partitionKey: id\n    unknown: 1\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyDocument(t *testing.T) {
	reg, err := schema.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schemaYAML), 0o600))

	reg, err := schema.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, reg.Has("sessions"))

	_, err = schema.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry_TableNotFound(t *testing.T) {
	_, err := schema.NewRegistry().Table("nope")
	assert.ErrorIs(t, err, errors.ErrTableNotFound)
}

func TestRegistry_RegisterDoesNotAliasIndexes(t *testing.T) {
	indexes := []schema.Index{{Name: "lsi", Local: true, SortKey: "s"}}
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.Table{Name: "t", PartitionKey: "pk", Indexes: indexes}))

	assert.Empty(t, indexes[0].PartitionKey)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := schema.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Register(schema.Table{Name: "t", PartitionKey: "pk"})
			_ = reg.Has("t")
			_ = reg.Names()
		}()
	}
	wg.Wait()
	assert.True(t, reg.Has("t"))
}

func TestTable_Keys(t *testing.T) {
	tbl, err := loadRegistry(t).Table("myTable")
	require.NoError(t, err)

	keys, err := tbl.Keys("")
	require.NoError(t, err)
	assert.Equal(t, schema.KeySchema{PartitionKey: "userId", SortKey: "dataTimestamp"}, keys)

	keys, err = tbl.Keys("byStatus")
	require.NoError(t, err)
	assert.Equal(t, "status", keys.PartitionKey)

	_, err = tbl.Keys("missing")
	assert.ErrorIs(t, err, errors.ErrIndexNotFound)
}

func TestTable_ValidateKey(t *testing.T) {
	tbl, err := loadRegistry(t).Table("myTable")
	require.NoError(t, err)

	assert.NoError(t, tbl.ValidateKey(map[string]any{"userId": "1", "dataTimestamp": 2}))
	assert.ErrorIs(t, tbl.ValidateKey(map[string]any{"userId": "1"}), errors.ErrMissingPrimaryKey)
	assert.ErrorIs(t, tbl.ValidateKey(map[string]any{"dataTimestamp": 2}), errors.ErrMissingPrimaryKey)
	assert.ErrorIs(t, tbl.ValidateKey(map[string]any{"userId": "1", "dataTimestamp": 2, "name": "x"}),
		errors.ErrInvalidPrimaryKey)
}

func TestTable_ValidateItem(t *testing.T) {
	tbl, err := loadRegistry(t).Table("myTable")
	require.NoError(t, err)

	assert.NoError(t, tbl.ValidateItem(map[string]any{"userId": "1", "dataTimestamp": 2, "extra": true}))
	assert.ErrorIs(t, tbl.ValidateItem(map[string]any{"userId": "1"}), errors.ErrMissingPrimaryKey)
}

func TestKeySchema_ValidateKeyConditions(t *testing.T) {
	keys := schema.KeySchema{PartitionKey: "userId", SortKey: "dataTimestamp"}
	eq := func(path string) node.KeyConditionNode {
		return node.KeyConditionNode{Path: path, Operator: node.OpEqual, Operands: []any{1}}
	}

	tests := []struct {
		name       string
		conditions []node.KeyConditionNode
		want       error
	}{
		{"partition only", []node.KeyConditionNode{eq("userId")}, nil},
		{"partition and sort range", []node.KeyConditionNode{
			eq("userId"),
			{Path: "dataTimestamp", Operator: node.OpBetween, Operands: []any{1, 2}},
		}, nil},
		{"no partition", []node.KeyConditionNode{eq("dataTimestamp")}, errors.ErrMissingKeyCondition},
		{"range on partition", []node.KeyConditionNode{
			{Path: "userId", Operator: node.OpGreaterThan, Operands: []any{1}},
		}, errors.ErrInvalidKeyCondition},
		{"non-key attribute", []node.KeyConditionNode{eq("userId"), eq("name")}, errors.ErrInvalidKeyCondition},
		{"sort key twice", []node.KeyConditionNode{eq("userId"), eq("dataTimestamp"), eq("dataTimestamp")}, errors.ErrInvalidKeyCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := keys.ValidateKeyConditions(tt.conditions)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
