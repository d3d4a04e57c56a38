package dynaquery

import (
	"context"

	"github.com/pay-theory/dynaquery/pkg/compiler"
	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/executor"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// QueryBuilder reads the items of one partition, optionally narrowed by
// sort key and filtered.
type QueryBuilder struct {
	filters[*QueryBuilder]
	db   *DB
	node node.QueryNode
}

// Query starts a Query on table
func (db *DB) Query(table string) *QueryBuilder {
	b := &QueryBuilder{db: db, node: node.QueryNode{Table: table}}
	b.filters.self = b
	return b
}

// KeyCondition appends a key condition. Only =, <, <=, >, >=, BETWEEN and
// begins_with are accepted.
func (b *QueryBuilder) KeyCondition(path, op string, operands ...any) *QueryBuilder {
	b.node.KeyConditions = append(b.node.KeyConditions, node.KeyConditionNode{
		Path:     path,
		Operator: node.Operator(op),
		Operands: operands,
	})
	return b
}

// Index queries a secondary index instead of the table
func (b *QueryBuilder) Index(name string) *QueryBuilder {
	b.node.Index = name
	return b
}

// Limit caps the number of items returned
func (b *QueryBuilder) Limit(limit int32) *QueryBuilder {
	b.node.Limit = &limit
	return b
}

// ScanIndexForward sets the sort key order; false reads descending.
func (b *QueryBuilder) ScanIndexForward(forward bool) *QueryBuilder {
	b.node.ScanIndexForward = &forward
	return b
}

// Attributes limits the attributes returned
func (b *QueryBuilder) Attributes(paths ...string) *QueryBuilder {
	b.node.Attributes = append(b.node.Attributes, paths...)
	return b
}

// ConsistentRead requests a strongly consistent read
func (b *QueryBuilder) ConsistentRead() *QueryBuilder {
	consistent := true
	b.node.ConsistentRead = &consistent
	return b
}

// StartFrom resumes a previous query at its last evaluated key
func (b *QueryBuilder) StartFrom(key map[string]any) *QueryBuilder {
	b.node.ExclusiveStartKey = key
	return b
}

// Compile validates the builder and assembles the command
func (b *QueryBuilder) Compile() (*core.QueryCommand, error) {
	n := b.node
	n.Filter = b.filters.list.Root()

	if t := b.db.table(n.Table); t != nil && len(n.KeyConditions) > 0 {
		keys, err := t.Keys(n.Index)
		if err == nil {
			err = keys.ValidateKeyConditions(n.KeyConditions)
		}
		if err != nil {
			return nil, errors.NewError(string(core.OpQuery), n.Table, err)
		}
	}
	return compiler.CompileQuery(&n)
}

// Execute reads the matching items into dest, a pointer to a slice.
func (b *QueryBuilder) Execute(ctx context.Context, dest any) (*executor.Page, error) {
	cmd, err := b.Compile()
	if err != nil {
		return nil, err
	}
	return b.db.executor.Query(ctx, cmd, dest)
}

// ScanBuilder reads every item of a table or index
type ScanBuilder struct {
	filters[*ScanBuilder]
	db   *DB
	node node.ScanNode
}

// Scan starts a Scan on table
func (db *DB) Scan(table string) *ScanBuilder {
	b := &ScanBuilder{db: db, node: node.ScanNode{Table: table}}
	b.filters.self = b
	return b
}

// Index scans a secondary index instead of the table
func (b *ScanBuilder) Index(name string) *ScanBuilder {
	b.node.Index = name
	return b
}

// Limit caps the number of items returned
func (b *ScanBuilder) Limit(limit int32) *ScanBuilder {
	b.node.Limit = &limit
	return b
}

// Attributes limits the attributes returned
func (b *ScanBuilder) Attributes(paths ...string) *ScanBuilder {
	b.node.Attributes = append(b.node.Attributes, paths...)
	return b
}

// ConsistentRead requests a strongly consistent read
func (b *ScanBuilder) ConsistentRead() *ScanBuilder {
	consistent := true
	b.node.ConsistentRead = &consistent
	return b
}

// Segment restricts the scan to one segment of a parallel scan
func (b *ScanBuilder) Segment(segment, totalSegments int32) *ScanBuilder {
	b.node.Segment = &segment
	b.node.TotalSegments = &totalSegments
	return b
}

// StartFrom resumes a previous scan at its last evaluated key
func (b *ScanBuilder) StartFrom(key map[string]any) *ScanBuilder {
	b.node.ExclusiveStartKey = key
	return b
}

// Compile assembles the command
func (b *ScanBuilder) Compile() (*core.ScanCommand, error) {
	n := b.node
	n.Filter = b.filters.list.Root()
	return compiler.CompileScan(&n)
}

// Execute reads the matching items into dest, a pointer to a slice.
func (b *ScanBuilder) Execute(ctx context.Context, dest any) (*executor.Page, error) {
	cmd, err := b.Compile()
	if err != nil {
		return nil, err
	}
	return b.db.executor.Scan(ctx, cmd, dest)
}
