package dynaquery

import (
	"context"

	"github.com/pay-theory/dynaquery/pkg/compiler"
	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// GetItemBuilder reads a single item by primary key
type GetItemBuilder struct {
	db   *DB
	node node.GetItemNode
}

// GetItemFrom starts a GetItem on table
func (db *DB) GetItemFrom(table string) *GetItemBuilder {
	return &GetItemBuilder{db: db, node: node.GetItemNode{Table: table}}
}

// Keys sets the primary key. Repeated calls merge.
func (b *GetItemBuilder) Keys(key map[string]any) *GetItemBuilder {
	b.node.Key = mergeKey(b.node.Key, key)
	return b
}

// Attributes limits the attributes returned
func (b *GetItemBuilder) Attributes(paths ...string) *GetItemBuilder {
	b.node.Attributes = append(b.node.Attributes, paths...)
	return b
}

// ConsistentRead requests a strongly consistent read
func (b *GetItemBuilder) ConsistentRead() *GetItemBuilder {
	consistent := true
	b.node.ConsistentRead = &consistent
	return b
}

// Compile validates the builder and assembles the command
func (b *GetItemBuilder) Compile() (*core.GetItemCommand, error) {
	if t := b.db.table(b.node.Table); t != nil && len(b.node.Key) > 0 {
		if err := t.ValidateKey(b.node.Key); err != nil {
			return nil, errors.NewError(string(core.OpGetItem), b.node.Table, err)
		}
	}
	return compiler.CompileGetItem(&b.node)
}

// Execute reads the item into dest. It returns errors.ErrItemNotFound when
// no item exists under the key.
func (b *GetItemBuilder) Execute(ctx context.Context, dest any) error {
	cmd, err := b.Compile()
	if err != nil {
		return err
	}
	return b.db.executor.GetItem(ctx, cmd, dest)
}
