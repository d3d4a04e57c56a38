package executor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pay-theory/dynaquery/pkg/core"
)

// TransactWrite applies every item of the command atomically.
func (e *Executor) TransactWrite(ctx context.Context, cmd *core.TransactWriteCommand) error {
	if cmd == nil {
		return fmt.Errorf("transaction command cannot be nil")
	}

	items := make([]types.TransactWriteItem, 0, len(cmd.TransactItems))
	for i, item := range cmd.TransactItems {
		converted, err := transactItem(item)
		if err != nil {
			return fmt.Errorf("transaction item %d: %w", i, err)
		}
		items = append(items, converted)
	}

	input := &dynamodb.TransactWriteItemsInput{TransactItems: items}
	if cmd.ClientRequestToken != "" {
		input.ClientRequestToken = aws.String(cmd.ClientRequestToken)
	}

	e.logger.Debug("sending request",
		zapOperation(cmd.Operation()),
		zapItems(len(items)))
	if _, err := e.client.TransactWriteItems(ctx, input); err != nil {
		e.failed(cmd.Operation(), "", err)
		return fmt.Errorf("failed to execute transaction: %w", err)
	}
	return nil
}

func transactItem(item core.TransactWriteItem) (types.TransactWriteItem, error) {
	switch {
	case item.Put != nil:
		in, err := putInput(item.Put)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                 in.TableName,
			Item:                      in.Item,
			ConditionExpression:       in.ConditionExpression,
			ExpressionAttributeNames:  in.ExpressionAttributeNames,
			ExpressionAttributeValues: in.ExpressionAttributeValues,
		}}, nil

	case item.Delete != nil:
		in, err := deleteInput(item.Delete)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 in.TableName,
			Key:                       in.Key,
			ConditionExpression:       in.ConditionExpression,
			ExpressionAttributeNames:  in.ExpressionAttributeNames,
			ExpressionAttributeValues: in.ExpressionAttributeValues,
		}}, nil

	case item.Update != nil:
		in, err := updateInput(item.Update)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Update: &types.Update{
			TableName:                 in.TableName,
			Key:                       in.Key,
			UpdateExpression:          in.UpdateExpression,
			ConditionExpression:       in.ConditionExpression,
			ExpressionAttributeNames:  in.ExpressionAttributeNames,
			ExpressionAttributeValues: in.ExpressionAttributeValues,
		}}, nil
	}

	return types.TransactWriteItem{}, fmt.Errorf("transaction item has no write")
}
