// Package executor sends compiled commands to DynamoDB.
//
// The executor is the only place where command values are converted to
// attribute values and where network calls happen. Transport errors are
// wrapped with context but never replaced, so callers can still match the
// SDK error types with errors.As.
package executor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
)

// DynamoDBAPI defines the DynamoDB operations the executor needs
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Executor sends commands through a DynamoDB client
type Executor struct {
	client DynamoDBAPI
	logger *zap.Logger
}

// New creates an executor. A nil logger disables logging.
func New(client DynamoDBAPI, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client: client,
		logger: logger,
	}
}

// Page describes where a Query or Scan stopped.
type Page struct {
	Count            int
	ScannedCount     int
	LastEvaluatedKey map[string]types.AttributeValue
}

// HasMore reports whether the read stopped before the end of the table.
func (p *Page) HasMore() bool {
	return p != nil && len(p.LastEvaluatedKey) > 0
}

// GetItem reads one item into dest. It returns errors.ErrItemNotFound when
// no item exists under the key.
func (e *Executor) GetItem(ctx context.Context, cmd *core.GetItemCommand, dest any) error {
	if cmd == nil {
		return fmt.Errorf("get item command cannot be nil")
	}

	key, err := MarshalMap(cmd.Key)
	if err != nil {
		return err
	}

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(cmd.TableName),
		Key:            key,
		ConsistentRead: cmd.ConsistentRead,
	}
	if cmd.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(cmd.ProjectionExpression)
	}
	if len(cmd.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = cmd.ExpressionAttributeNames
	}

	e.sending(cmd.Operation(), cmd.TableName)
	output, err := e.client.GetItem(ctx, input)
	if err != nil {
		e.failed(cmd.Operation(), cmd.TableName, err)
		return fmt.Errorf("failed to get item: %w", err)
	}
	if len(output.Item) == 0 {
		return errors.ErrItemNotFound
	}

	return UnmarshalItem(output.Item, dest)
}

// Query reads items into dest, a pointer to a slice. Pages are followed
// until the table is exhausted or Limit items have been collected; dest never
// receives more than Limit items.
func (e *Executor) Query(ctx context.Context, cmd *core.QueryCommand, dest any) (*Page, error) {
	if cmd == nil {
		return nil, fmt.Errorf("query command cannot be nil")
	}

	values, err := MarshalMap(cmd.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	startKey, err := MarshalMap(cmd.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(cmd.TableName),
		KeyConditionExpression:    aws.String(cmd.KeyConditionExpression),
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
		Limit:                     cmd.Limit,
		ScanIndexForward:          cmd.ScanIndexForward,
		ConsistentRead:            cmd.ConsistentRead,
	}
	if cmd.IndexName != "" {
		input.IndexName = aws.String(cmd.IndexName)
	}
	if cmd.FilterExpression != "" {
		input.FilterExpression = aws.String(cmd.FilterExpression)
	}
	if cmd.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(cmd.ProjectionExpression)
	}
	if len(cmd.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = cmd.ExpressionAttributeNames
	}

	p := &pager{limit: cmd.Limit}
	for {
		e.sending(cmd.Operation(), cmd.TableName)
		output, err := e.client.Query(ctx, input)
		if err != nil {
			e.failed(cmd.Operation(), cmd.TableName, err)
			return nil, fmt.Errorf("failed to execute query: %w", err)
		}

		if !p.add(output.Items, output.ScannedCount, output.LastEvaluatedKey) {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
		input.Limit = p.remaining()
	}

	return p.result(dest)
}

// Scan reads items into dest, a pointer to a slice, following pages the same
// way Query does.
func (e *Executor) Scan(ctx context.Context, cmd *core.ScanCommand, dest any) (*Page, error) {
	if cmd == nil {
		return nil, fmt.Errorf("scan command cannot be nil")
	}

	values, err := MarshalMap(cmd.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	startKey, err := MarshalMap(cmd.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(cmd.TableName),
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
		Limit:                     cmd.Limit,
		ConsistentRead:            cmd.ConsistentRead,
		Segment:                   cmd.Segment,
		TotalSegments:             cmd.TotalSegments,
	}
	if cmd.IndexName != "" {
		input.IndexName = aws.String(cmd.IndexName)
	}
	if cmd.FilterExpression != "" {
		input.FilterExpression = aws.String(cmd.FilterExpression)
	}
	if cmd.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(cmd.ProjectionExpression)
	}
	if len(cmd.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = cmd.ExpressionAttributeNames
	}

	p := &pager{limit: cmd.Limit}
	for {
		e.sending(cmd.Operation(), cmd.TableName)
		output, err := e.client.Scan(ctx, input)
		if err != nil {
			e.failed(cmd.Operation(), cmd.TableName, err)
			return nil, fmt.Errorf("failed to execute scan: %w", err)
		}

		if !p.add(output.Items, output.ScannedCount, output.LastEvaluatedKey) {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
		input.Limit = p.remaining()
	}

	return p.result(dest)
}

// pager collects Query and Scan pages. With a limit, follow-up requests only
// ask for the items still missing and the result never holds more than limit
// items. When a page had to be cut, LastEvaluatedKey is rebuilt from the last
// kept item so the next read resumes right after it.
type pager struct {
	limit    *int32
	items    []map[string]types.AttributeValue
	keyNames []string
	page     Page
}

// add records one page and reports whether another should be requested.
func (p *pager) add(items []map[string]types.AttributeValue, scanned int32, lastKey map[string]types.AttributeValue) bool {
	p.page.ScannedCount += int(scanned)
	p.page.LastEvaluatedKey = lastKey
	if len(lastKey) > 0 {
		p.keyNames = p.keyNames[:0]
		for name := range lastKey {
			p.keyNames = append(p.keyNames, name)
		}
	}
	p.items = append(p.items, items...)

	if p.limit != nil && len(p.items) >= int(*p.limit) {
		if n := int(*p.limit); len(p.items) > n {
			p.items = p.items[:n]
			if len(p.keyNames) > 0 {
				p.page.LastEvaluatedKey = p.keyOf(p.items[n-1])
			}
		}
		return false
	}
	return len(lastKey) > 0
}

func (p *pager) remaining() *int32 {
	if p.limit == nil {
		return nil
	}
	return aws.Int32(*p.limit - int32(len(p.items)))
}

func (p *pager) keyOf(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue, len(p.keyNames))
	for _, name := range p.keyNames {
		if av, ok := item[name]; ok {
			key[name] = av
		}
	}
	return key
}

func (p *pager) result(dest any) (*Page, error) {
	p.page.Count = len(p.items)
	return &p.page, UnmarshalItems(p.items, dest)
}

// PutItem writes an item. When the command asks for return values and old is
// non-nil, the returned attributes are unmarshaled into old.
func (e *Executor) PutItem(ctx context.Context, cmd *core.PutItemCommand, old any) error {
	input, err := putInput(cmd)
	if err != nil {
		return err
	}

	e.sending(cmd.Operation(), cmd.TableName)
	output, err := e.client.PutItem(ctx, input)
	if err != nil {
		e.failed(cmd.Operation(), cmd.TableName, err)
		return fmt.Errorf("failed to put item: %w", err)
	}

	return unmarshalAttributes(output.Attributes, old)
}

// DeleteItem removes an item, optionally returning its old attributes.
func (e *Executor) DeleteItem(ctx context.Context, cmd *core.DeleteItemCommand, old any) error {
	input, err := deleteInput(cmd)
	if err != nil {
		return err
	}

	e.sending(cmd.Operation(), cmd.TableName)
	output, err := e.client.DeleteItem(ctx, input)
	if err != nil {
		e.failed(cmd.Operation(), cmd.TableName, err)
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return unmarshalAttributes(output.Attributes, old)
}

// UpdateItem applies an update, optionally returning attributes selected by
// the command's ReturnValues.
func (e *Executor) UpdateItem(ctx context.Context, cmd *core.UpdateItemCommand, attrs any) error {
	input, err := updateInput(cmd)
	if err != nil {
		return err
	}

	e.sending(cmd.Operation(), cmd.TableName)
	output, err := e.client.UpdateItem(ctx, input)
	if err != nil {
		e.failed(cmd.Operation(), cmd.TableName, err)
		return fmt.Errorf("failed to update item: %w", err)
	}

	return unmarshalAttributes(output.Attributes, attrs)
}

func unmarshalAttributes(attrs map[string]types.AttributeValue, dest any) error {
	if dest == nil || len(attrs) == 0 {
		return nil
	}
	return UnmarshalItem(attrs, dest)
}
