package dynaquery

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pay-theory/dynaquery/pkg/compiler"
	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// TransactItem is one write of a transaction. Exactly one field must be set.
type TransactItem struct {
	Put    *PutItemBuilder
	Delete *DeleteItemBuilder
	Update *UpdateItemBuilder
}

// TransactionBuilder collects writes that are applied all-or-nothing, in the
// order they were added.
type TransactionBuilder struct {
	db    *DB
	items []TransactItem
	token string
}

// CreateTransaction starts an empty transaction
func (db *DB) CreateTransaction() *TransactionBuilder {
	return &TransactionBuilder{db: db}
}

// AddItem appends a write to the transaction
func (b *TransactionBuilder) AddItem(item TransactItem) *TransactionBuilder {
	b.items = append(b.items, item)
	return b
}

// Put appends a put built with db.PutItem
func (b *TransactionBuilder) Put(put *PutItemBuilder) *TransactionBuilder {
	return b.AddItem(TransactItem{Put: put})
}

// Delete appends a delete built with db.DeleteFrom
func (b *TransactionBuilder) Delete(del *DeleteItemBuilder) *TransactionBuilder {
	return b.AddItem(TransactItem{Delete: del})
}

// Update appends an update built with db.UpdateItem
func (b *TransactionBuilder) Update(update *UpdateItemBuilder) *TransactionBuilder {
	return b.AddItem(TransactItem{Update: update})
}

// WithClientRequestToken sets the idempotency token. Without one, Execute
// generates a token the first time it runs and reuses it on retries of the
// same builder.
func (b *TransactionBuilder) WithClientRequestToken(token string) *TransactionBuilder {
	b.token = token
	return b
}

// ClientRequestToken returns the idempotency token, which is empty until set
// or generated by Execute.
func (b *TransactionBuilder) ClientRequestToken() string {
	return b.token
}

// Compile validates every item and assembles the command
func (b *TransactionBuilder) Compile() (*core.TransactWriteCommand, error) {
	n := &node.TransactionNode{
		Items:              make([]node.TransactItemNode, len(b.items)),
		ClientRequestToken: b.token,
	}

	for i, item := range b.items {
		converted, err := item.build()
		if err != nil {
			return nil, errors.NewError(string(core.OpTransactWriteItems), "", fmt.Errorf("item %d: %w", i, err))
		}
		n.Items[i] = converted
	}
	return compiler.CompileTransaction(n)
}

// Execute applies the transaction
func (b *TransactionBuilder) Execute(ctx context.Context) error {
	if b.token == "" {
		b.token = uuid.NewString()
	}

	cmd, err := b.Compile()
	if err != nil {
		return err
	}
	return b.db.executor.TransactWrite(ctx, cmd)
}

// build converts the populated builders. The populated count itself is
// checked by the compiler.
func (t TransactItem) build() (node.TransactItemNode, error) {
	var (
		out node.TransactItemNode
		err error
	)
	if t.Put != nil {
		if out.Put, err = t.Put.build(); err != nil {
			return out, err
		}
	}
	if t.Delete != nil {
		if out.Delete, err = t.Delete.build(); err != nil {
			return out, err
		}
	}
	if t.Update != nil {
		if out.Update, err = t.Update.build(); err != nil {
			return out, err
		}
	}
	return out, nil
}
