// Package compiler assembles command payloads from node trees.
//
// Each compile call allocates placeholders from a fresh allocator, so
// compiling the same unmodified tree twice produces structurally identical
// commands. Compilation is pure: it performs no I/O and never mutates its
// input, so distinct trees may be compiled concurrently.
package compiler

import (
	"fmt"

	"github.com/pay-theory/dynaquery/internal/expr"
	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
	"github.com/pay-theory/dynaquery/pkg/validation"
)

// Compile dispatches on the node kind and assembles the matching command.
func Compile(n node.Node) (core.Command, error) {
	var (
		cmd core.Command
		err error
	)

	switch v := n.(type) {
	case *node.GetItemNode:
		cmd, err = CompileGetItem(v)
	case *node.QueryNode:
		cmd, err = CompileQuery(v)
	case *node.ScanNode:
		cmd, err = CompileScan(v)
	case *node.PutItemNode:
		cmd, err = CompilePutItem(v)
	case *node.DeleteItemNode:
		cmd, err = CompileDeleteItem(v)
	case *node.UpdateItemNode:
		cmd, err = CompileUpdateItem(v)
	case *node.TransactionNode:
		cmd, err = CompileTransaction(v)
	case nil:
		err = nilNode("Compile")
	default:
		err = errors.NewError("Compile", "", fmt.Errorf("%w: %s", errors.ErrUnsupportedNode, n.Kind()))
	}

	// a failed typed command must not escape as a non-nil interface
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// CompileGetItem assembles a GetItem command. Get has no conditions; only
// the key, projection and read consistency are carried.
func CompileGetItem(n *node.GetItemNode) (*core.GetItemCommand, error) {
	const op = "GetItem"
	if n == nil {
		return nil, nilNode(op)
	}
	if err := checkTarget(n.Table, n.Key); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	a := expr.NewAllocator()
	projection, err := expr.CompileProjection(n.Attributes, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	if err := checkLengths(expression{"ProjectionExpression", projection}); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	return &core.GetItemCommand{
		TableName:                n.Table,
		Key:                      n.Key,
		ProjectionExpression:     projection,
		ExpressionAttributeNames: a.Names(),
		ConsistentRead:           n.ConsistentRead,
	}, nil
}

// CompileQuery assembles a Query command. The key condition expression is
// mandatory.
func CompileQuery(n *node.QueryNode) (*core.QueryCommand, error) {
	const op = "Query"
	if n == nil {
		return nil, nilNode(op)
	}
	if n.Table == "" {
		return nil, errors.NewError(op, n.Table, errors.ErrMissingTableName)
	}

	a := expr.NewAllocator()
	keyCondition, err := expr.CompileKeyCondition(n.KeyConditions, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	filter, err := expr.CompileCondition(n.Filter, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	projection, err := expr.CompileProjection(n.Attributes, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	if err := checkLengths(
		expression{"KeyConditionExpression", keyCondition},
		expression{"FilterExpression", filter},
		expression{"ProjectionExpression", projection},
	); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	return &core.QueryCommand{
		TableName:                 n.Table,
		IndexName:                 n.Index,
		KeyConditionExpression:    keyCondition,
		FilterExpression:          filter,
		ProjectionExpression:      projection,
		ExpressionAttributeNames:  a.Names(),
		ExpressionAttributeValues: a.Values(),
		Limit:                     n.Limit,
		ScanIndexForward:          n.ScanIndexForward,
		ConsistentRead:            n.ConsistentRead,
		ExclusiveStartKey:         n.ExclusiveStartKey,
	}, nil
}

// CompileScan assembles a Scan command. Scans carry no key condition.
func CompileScan(n *node.ScanNode) (*core.ScanCommand, error) {
	const op = "Scan"
	if n == nil {
		return nil, nilNode(op)
	}
	if n.Table == "" {
		return nil, errors.NewError(op, n.Table, errors.ErrMissingTableName)
	}

	a := expr.NewAllocator()
	filter, err := expr.CompileCondition(n.Filter, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	projection, err := expr.CompileProjection(n.Attributes, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	if err := checkLengths(
		expression{"FilterExpression", filter},
		expression{"ProjectionExpression", projection},
	); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	return &core.ScanCommand{
		TableName:                 n.Table,
		IndexName:                 n.Index,
		FilterExpression:          filter,
		ProjectionExpression:      projection,
		ExpressionAttributeNames:  a.Names(),
		ExpressionAttributeValues: a.Values(),
		Limit:                     n.Limit,
		ConsistentRead:            n.ConsistentRead,
		Segment:                   n.Segment,
		TotalSegments:             n.TotalSegments,
		ExclusiveStartKey:         n.ExclusiveStartKey,
	}, nil
}

// CompilePutItem assembles a PutItem command with an optional condition.
func CompilePutItem(n *node.PutItemNode) (*core.PutItemCommand, error) {
	const op = "PutItem"
	if n == nil {
		return nil, nilNode(op)
	}
	if n.Table == "" {
		return nil, errors.NewError(op, n.Table, errors.ErrMissingTableName)
	}
	if len(n.Item) == 0 {
		return nil, errors.NewError(op, n.Table, errors.ErrEmptyItem)
	}

	a := expr.NewAllocator()
	condition, err := expr.CompileCondition(n.Condition, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	if err := checkLengths(expression{"ConditionExpression", condition}); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	return &core.PutItemCommand{
		TableName:                 n.Table,
		Item:                      n.Item,
		ConditionExpression:       condition,
		ExpressionAttributeNames:  a.Names(),
		ExpressionAttributeValues: a.Values(),
		ReturnValues:              string(n.ReturnValues),
	}, nil
}

// CompileDeleteItem assembles a DeleteItem command with an optional condition.
func CompileDeleteItem(n *node.DeleteItemNode) (*core.DeleteItemCommand, error) {
	const op = "DeleteItem"
	if n == nil {
		return nil, nilNode(op)
	}
	if err := checkTarget(n.Table, n.Key); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	a := expr.NewAllocator()
	condition, err := expr.CompileCondition(n.Condition, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	if err := checkLengths(expression{"ConditionExpression", condition}); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	return &core.DeleteItemCommand{
		TableName:                 n.Table,
		Key:                       n.Key,
		ConditionExpression:       condition,
		ExpressionAttributeNames:  a.Names(),
		ExpressionAttributeValues: a.Values(),
		ReturnValues:              string(n.ReturnValues),
	}, nil
}

// CompileUpdateItem assembles an UpdateItem command. At least one update
// clause is required; the condition is optional.
func CompileUpdateItem(n *node.UpdateItemNode) (*core.UpdateItemCommand, error) {
	const op = "UpdateItem"
	if n == nil {
		return nil, nilNode(op)
	}
	if err := checkTarget(n.Table, n.Key); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	a := expr.NewAllocator()
	update, err := expr.CompileUpdateClauses(n.Clauses, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	condition, err := expr.CompileCondition(n.Condition, a)
	if err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}
	if err := checkLengths(
		expression{"UpdateExpression", update},
		expression{"ConditionExpression", condition},
	); err != nil {
		return nil, errors.NewError(op, n.Table, err)
	}

	return &core.UpdateItemCommand{
		TableName:                 n.Table,
		Key:                       n.Key,
		UpdateExpression:          update,
		ConditionExpression:       condition,
		ExpressionAttributeNames:  a.Names(),
		ExpressionAttributeValues: a.Values(),
		ReturnValues:              string(n.ReturnValues),
	}, nil
}

func checkTarget(table string, key map[string]any) error {
	if table == "" {
		return errors.ErrMissingTableName
	}
	if len(key) == 0 {
		return errors.ErrMissingKeyCondition
	}
	return nil
}

func nilNode(op string) error {
	return errors.NewError(op, "", fmt.Errorf("%w: nil node", errors.ErrUnsupportedNode))
}

// expression is a compiled expression and the request field it fills.
type expression struct {
	kind string
	text string
}

// checkLengths applies the service expression limit to each compiled
// expression. Empty expressions pass.
func checkLengths(expressions ...expression) error {
	for _, e := range expressions {
		if err := validation.ValidateExpression(e.kind, e.text); err != nil {
			return err
		}
	}
	return nil
}
