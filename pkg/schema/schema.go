// Package schema describes which attributes of a table are keys.
//
// Schemas are consulted by the builder facade to reject malformed keys and
// key conditions early. The compiler never reads them.
package schema

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
	"github.com/pay-theory/dynaquery/pkg/validation"
)

// KeySchema represents a primary key or index key schema
type KeySchema struct {
	PartitionKey string `yaml:"partitionKey" json:"partitionKey"`
	SortKey      string `yaml:"sortKey,omitempty" json:"sortKey,omitempty"` // optional
}

// Index represents a GSI or LSI schema. A local index shares the table's
// partition key, so PartitionKey may be left empty for it.
type Index struct {
	Name             string   `yaml:"name" json:"name"`
	PartitionKey     string   `yaml:"partitionKey,omitempty" json:"partitionKey,omitempty"`
	SortKey          string   `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	Local            bool     `yaml:"local,omitempty" json:"local,omitempty"`
	Projection       string   `yaml:"projection,omitempty" json:"projection,omitempty"`
	NonKeyAttributes []string `yaml:"nonKeyAttributes,omitempty" json:"nonKeyAttributes,omitempty"`
}

// Table describes the key layout of one table. Attributes maps key
// attribute names to their scalar type (S, N or B); unlisted keys are S.
type Table struct {
	Name         string            `yaml:"name" json:"name"`
	PartitionKey string            `yaml:"partitionKey" json:"partitionKey"`
	SortKey      string            `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	Attributes   map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Indexes      []Index           `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// Keys returns the key schema of the table, or of the named index.
func (t *Table) Keys(index string) (KeySchema, error) {
	if index == "" {
		return KeySchema{PartitionKey: t.PartitionKey, SortKey: t.SortKey}, nil
	}
	for _, idx := range t.Indexes {
		if idx.Name == index {
			return KeySchema{PartitionKey: idx.PartitionKey, SortKey: idx.SortKey}, nil
		}
	}
	return KeySchema{}, fmt.Errorf("%w: %s on table %s", errors.ErrIndexNotFound, index, t.Name)
}

// ValidateKey checks that key names exactly the table's primary key.
func (t *Table) ValidateKey(key map[string]any) error {
	if _, ok := key[t.PartitionKey]; !ok {
		return fmt.Errorf("%w: partition key %s", errors.ErrMissingPrimaryKey, t.PartitionKey)
	}
	if t.SortKey != "" {
		if _, ok := key[t.SortKey]; !ok {
			return fmt.Errorf("%w: sort key %s", errors.ErrMissingPrimaryKey, t.SortKey)
		}
	}
	for attr := range key {
		if attr != t.PartitionKey && attr != t.SortKey {
			return fmt.Errorf("%w: %s is not a key attribute", errors.ErrInvalidPrimaryKey, attr)
		}
	}
	return nil
}

// ValidateItem checks that a full item carries every primary key attribute.
func (t *Table) ValidateItem(item map[string]any) error {
	for _, attr := range []string{t.PartitionKey, t.SortKey} {
		if attr == "" {
			continue
		}
		if _, ok := item[attr]; !ok {
			return fmt.Errorf("%w: item has no %s", errors.ErrMissingPrimaryKey, attr)
		}
	}
	return nil
}

// ValidateKeyConditions checks that conditions select exactly one partition
// by equality and optionally narrow the sort key once.
func (k KeySchema) ValidateKeyConditions(conditions []node.KeyConditionNode) error {
	var partition, sortKey int
	for _, kc := range conditions {
		switch kc.Path {
		case k.PartitionKey:
			if kc.Operator != node.OpEqual {
				return fmt.Errorf("%w: partition key %s requires =, got %s",
					errors.ErrInvalidKeyCondition, kc.Path, kc.Operator)
			}
			partition++
		case k.SortKey:
			sortKey++
		default:
			return fmt.Errorf("%w: %s is not a key attribute", errors.ErrInvalidKeyCondition, kc.Path)
		}
	}

	if partition == 0 {
		return fmt.Errorf("%w: partition key %s", errors.ErrMissingKeyCondition, k.PartitionKey)
	}
	if partition > 1 || sortKey > 1 {
		return fmt.Errorf("%w: each key attribute may appear once", errors.ErrInvalidKeyCondition)
	}
	return nil
}

// Registry holds table schemas by name. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register adds or replaces a table schema.
func (r *Registry) Register(t Table) error {
	if t.Name == "" {
		return errors.ErrMissingTableName
	}
	if t.PartitionKey == "" {
		return fmt.Errorf("%w: table %s has no partition key", errors.ErrMissingPrimaryKey, t.Name)
	}
	if err := validateKeyNames(t.PartitionKey, t.SortKey); err != nil {
		return fmt.Errorf("table %s: %w", t.Name, err)
	}
	for attr, typ := range t.Attributes {
		switch typ {
		case "S", "N", "B":
		default:
			return fmt.Errorf("%w: %s on table %s is %q, want S, N or B",
				errors.ErrInvalidAttributeType, attr, t.Name, typ)
		}
	}

	// indexes are normalized on a private copy
	t.Indexes = append([]Index(nil), t.Indexes...)
	for i := range t.Indexes {
		idx := &t.Indexes[i]
		if idx.Local && idx.PartitionKey == "" {
			idx.PartitionKey = t.PartitionKey
		}
		if idx.Name == "" || idx.PartitionKey == "" {
			return fmt.Errorf("%w: index on table %s needs a name and partition key",
				errors.ErrMissingPrimaryKey, t.Name)
		}
		if idx.Local && (idx.PartitionKey != t.PartitionKey || idx.SortKey == "") {
			return fmt.Errorf("%w: local index %s must use partition key %s and a sort key",
				errors.ErrInvalidPrimaryKey, idx.Name, t.PartitionKey)
		}
		if err := validation.ValidateIndexName(idx.Name); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		if err := validateKeyNames(idx.PartitionKey, idx.SortKey); err != nil {
			return fmt.Errorf("index %s: %w", idx.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[t.Name] = &t
	return nil
}

func validateKeyNames(partitionKey, sortKey string) error {
	if err := validation.ValidateKeyName(partitionKey); err != nil {
		return err
	}
	if sortKey == "" {
		return nil
	}
	return validation.ValidateKeyName(sortKey)
}

// Table returns the schema registered under name.
func (r *Registry) Table(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrTableNotFound, name)
	}
	return t, nil
}

// Has reports whether a schema is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[name]
	return ok
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// document is the YAML layout of a schema file:
//
//	tables:
//	  - name: myTable
//	    partitionKey: userId
//	    sortKey: dataTimestamp
//	    attributes:
//	      dataTimestamp: N
//	    indexes:
//	      - name: byStatus
//	        partitionKey: status
type document struct {
	Tables []Table `yaml:"tables"`
}

// Load reads table schemas from YAML.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	reg := NewRegistry()
	for _, t := range doc.Tables {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadFile reads table schemas from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	return Load(f)
}
