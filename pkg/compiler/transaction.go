package compiler

import (
	"fmt"

	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// CompileTransaction assembles a TransactWriteItems command.
//
// Every item is validated before any is compiled, so a malformed item never
// yields a partial command. Items are compiled independently, each with its
// own placeholder numbering starting at zero, and keep their input order.
func CompileTransaction(n *node.TransactionNode) (*core.TransactWriteCommand, error) {
	const op = "TransactWriteItems"
	if n == nil {
		return nil, nilNode(op)
	}

	if len(n.Items) == 0 {
		return nil, errors.NewError(op, "", errors.ErrEmptyTransaction)
	}
	if len(n.Items) > node.MaxTransactItems {
		return nil, errors.NewError(op, "", fmt.Errorf("%w: %d exceeds %d",
			errors.ErrTooManyTransactItems, len(n.Items), node.MaxTransactItems))
	}

	for i := range n.Items {
		if got := n.Items[i].Populated(); got != 1 {
			return nil, errors.NewError(op, "", fmt.Errorf("%w: item %d has %d writes, want exactly 1",
				errors.ErrInvalidTransactItem, i, got))
		}
	}

	items := make([]core.TransactWriteItem, 0, len(n.Items))
	for i := range n.Items {
		item, err := compileTransactItem(&n.Items[i])
		if err != nil {
			return nil, errors.NewError(op, "", fmt.Errorf("item %d: %w", i, err))
		}
		items = append(items, item)
	}

	return &core.TransactWriteCommand{
		TransactItems:      items,
		ClientRequestToken: n.ClientRequestToken,
	}, nil
}

func compileTransactItem(item *node.TransactItemNode) (core.TransactWriteItem, error) {
	switch {
	case item.Put != nil:
		cmd, err := CompilePutItem(item.Put)
		if err != nil {
			return core.TransactWriteItem{}, err
		}
		return core.TransactWriteItem{Put: cmd}, nil

	case item.Delete != nil:
		cmd, err := CompileDeleteItem(item.Delete)
		if err != nil {
			return core.TransactWriteItem{}, err
		}
		return core.TransactWriteItem{Delete: cmd}, nil

	default:
		cmd, err := CompileUpdateItem(item.Update)
		if err != nil {
			return core.TransactWriteItem{}, err
		}
		return core.TransactWriteItem{Update: cmd}, nil
	}
}
