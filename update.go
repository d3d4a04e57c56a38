package dynaquery

import (
	"context"

	"github.com/pay-theory/dynaquery/pkg/compiler"
	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// UpdateItemBuilder modifies one item in place. Clauses are grouped into
// SET, REMOVE, ADD and DELETE sections when compiled; within a section they
// keep the order they were added in.
type UpdateItemBuilder struct {
	conditions[*UpdateItemBuilder]
	db   *DB
	node node.UpdateItemNode
}

// UpdateItem starts an UpdateItem on table
func (db *DB) UpdateItem(table string) *UpdateItemBuilder {
	b := &UpdateItemBuilder{db: db, node: node.UpdateItemNode{Table: table}}
	b.conditions.self = b
	return b
}

// Keys sets the primary key. Repeated calls merge.
func (b *UpdateItemBuilder) Keys(key map[string]any) *UpdateItemBuilder {
	b.node.Key = mergeKey(b.node.Key, key)
	return b
}

func (b *UpdateItemBuilder) clause(c node.UpdateClauseNode) *UpdateItemBuilder {
	b.node.Clauses = append(b.node.Clauses, c)
	return b
}

// Set assigns value to path
func (b *UpdateItemBuilder) Set(path string, value any) *UpdateItemBuilder {
	return b.clause(node.Set(path, value))
}

// SetIfNotExists assigns value to path unless it already has one
func (b *UpdateItemBuilder) SetIfNotExists(path string, value any) *UpdateItemBuilder {
	return b.clause(node.SetWith(path, node.SetIfNotExists, value))
}

// AppendToList appends the elements of list to the list at path
func (b *UpdateItemBuilder) AppendToList(path string, list any) *UpdateItemBuilder {
	return b.clause(node.SetWith(path, node.SetListAppend, list))
}

// PrependToList prepends the elements of list to the list at path
func (b *UpdateItemBuilder) PrependToList(path string, list any) *UpdateItemBuilder {
	return b.clause(node.SetWith(path, node.SetListPrepend, list))
}

// Increment adds delta to the number at path
func (b *UpdateItemBuilder) Increment(path string, delta any) *UpdateItemBuilder {
	return b.clause(node.SetWith(path, node.SetIncrement, delta))
}

// Decrement subtracts delta from the number at path
func (b *UpdateItemBuilder) Decrement(path string, delta any) *UpdateItemBuilder {
	return b.clause(node.SetWith(path, node.SetDecrement, delta))
}

// Remove deletes the attribute at path
func (b *UpdateItemBuilder) Remove(path string) *UpdateItemBuilder {
	return b.clause(node.Remove(path))
}

// Add adds a number to path, or elements to the set at path
func (b *UpdateItemBuilder) Add(path string, value any) *UpdateItemBuilder {
	return b.clause(node.Add(path, value))
}

// Delete removes elements from the set at path
func (b *UpdateItemBuilder) Delete(path string, value any) *UpdateItemBuilder {
	return b.clause(node.Delete(path, value))
}

// ReturnValues selects the attributes returned by the update
func (b *UpdateItemBuilder) ReturnValues(rv node.ReturnValue) *UpdateItemBuilder {
	b.node.ReturnValues = rv
	return b
}

func (b *UpdateItemBuilder) build() (*node.UpdateItemNode, error) {
	n := b.node
	n.Condition = b.conditions.list.Root()
	if t := b.db.table(n.Table); t != nil && len(n.Key) > 0 {
		if err := t.ValidateKey(n.Key); err != nil {
			return nil, errors.NewError(string(core.OpUpdateItem), n.Table, err)
		}
	}
	return &n, nil
}

// Compile validates the builder and assembles the command
func (b *UpdateItemBuilder) Compile() (*core.UpdateItemCommand, error) {
	n, err := b.build()
	if err != nil {
		return nil, err
	}
	return compiler.CompileUpdateItem(n)
}

// Execute applies the update
func (b *UpdateItemBuilder) Execute(ctx context.Context) error {
	return b.ExecuteWithResult(ctx, nil)
}

// ExecuteWithResult applies the update and decodes the attributes selected
// by ReturnValues into dest.
func (b *UpdateItemBuilder) ExecuteWithResult(ctx context.Context, dest any) error {
	cmd, err := b.Compile()
	if err != nil {
		return err
	}
	return b.db.executor.UpdateItem(ctx, cmd, dest)
}
