package dynaquery

import (
	"context"

	"github.com/pay-theory/dynaquery/pkg/compiler"
	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// PutItemBuilder writes a full item, optionally guarded by a condition
type PutItemBuilder struct {
	conditions[*PutItemBuilder]
	db   *DB
	node node.PutItemNode
	err  error
}

// PutItem starts a PutItem on table
func (db *DB) PutItem(table string) *PutItemBuilder {
	b := &PutItemBuilder{db: db, node: node.PutItemNode{Table: table}}
	b.conditions.self = b
	return b
}

// Item sets the item to write. It accepts a map[string]any, a map of
// attribute values, or a struct tagged for attributevalue.
func (b *PutItemBuilder) Item(item any) *PutItemBuilder {
	m, err := toAttributeMap(string(core.OpPutItem), item)
	if err != nil {
		b.err = err
		return b
	}
	b.node.Item = m
	return b
}

// ReturnValues selects the attributes returned by the write
func (b *PutItemBuilder) ReturnValues(rv node.ReturnValue) *PutItemBuilder {
	b.node.ReturnValues = rv
	return b
}

func (b *PutItemBuilder) build() (*node.PutItemNode, error) {
	if b.err != nil {
		return nil, b.err
	}

	n := b.node
	n.Condition = b.conditions.list.Root()
	if t := b.db.table(n.Table); t != nil && len(n.Item) > 0 {
		if err := t.ValidateItem(n.Item); err != nil {
			return nil, errors.NewError(string(core.OpPutItem), n.Table, err)
		}
	}
	return &n, nil
}

// Compile validates the builder and assembles the command
func (b *PutItemBuilder) Compile() (*core.PutItemCommand, error) {
	n, err := b.build()
	if err != nil {
		return nil, err
	}
	return compiler.CompilePutItem(n)
}

// Execute writes the item
func (b *PutItemBuilder) Execute(ctx context.Context) error {
	return b.ExecuteWithResult(ctx, nil)
}

// ExecuteWithResult writes the item and decodes the attributes selected by
// ReturnValues into dest.
func (b *PutItemBuilder) ExecuteWithResult(ctx context.Context, dest any) error {
	cmd, err := b.Compile()
	if err != nil {
		return err
	}
	return b.db.executor.PutItem(ctx, cmd, dest)
}

// DeleteItemBuilder removes one item by key, optionally guarded by a
// condition
type DeleteItemBuilder struct {
	conditions[*DeleteItemBuilder]
	db   *DB
	node node.DeleteItemNode
}

// DeleteFrom starts a DeleteItem on table
func (db *DB) DeleteFrom(table string) *DeleteItemBuilder {
	b := &DeleteItemBuilder{db: db, node: node.DeleteItemNode{Table: table}}
	b.conditions.self = b
	return b
}

// Keys sets the primary key. Repeated calls merge.
func (b *DeleteItemBuilder) Keys(key map[string]any) *DeleteItemBuilder {
	b.node.Key = mergeKey(b.node.Key, key)
	return b
}

// ReturnValues selects the attributes returned by the delete
func (b *DeleteItemBuilder) ReturnValues(rv node.ReturnValue) *DeleteItemBuilder {
	b.node.ReturnValues = rv
	return b
}

func (b *DeleteItemBuilder) build() (*node.DeleteItemNode, error) {
	n := b.node
	n.Condition = b.conditions.list.Root()
	if t := b.db.table(n.Table); t != nil && len(n.Key) > 0 {
		if err := t.ValidateKey(n.Key); err != nil {
			return nil, errors.NewError(string(core.OpDeleteItem), n.Table, err)
		}
	}
	return &n, nil
}

// Compile validates the builder and assembles the command
func (b *DeleteItemBuilder) Compile() (*core.DeleteItemCommand, error) {
	n, err := b.build()
	if err != nil {
		return nil, err
	}
	return compiler.CompileDeleteItem(n)
}

// Execute removes the item
func (b *DeleteItemBuilder) Execute(ctx context.Context) error {
	return b.ExecuteWithResult(ctx, nil)
}

// ExecuteWithResult removes the item and decodes the attributes selected by
// ReturnValues into dest.
func (b *DeleteItemBuilder) ExecuteWithResult(ctx context.Context, dest any) error {
	cmd, err := b.Compile()
	if err != nil {
		return err
	}
	return b.db.executor.DeleteItem(ctx, cmd, dest)
}
