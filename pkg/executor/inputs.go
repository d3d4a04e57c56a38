package executor

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pay-theory/dynaquery/pkg/core"
)

func putInput(cmd *core.PutItemCommand) (*dynamodb.PutItemInput, error) {
	if cmd == nil {
		return nil, fmt.Errorf("put item command cannot be nil")
	}

	item, err := MarshalMap(cmd.Item)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("item cannot be empty")
	}
	values, err := MarshalMap(cmd.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.PutItemInput{
		TableName:                 aws.String(cmd.TableName),
		Item:                      item,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValue(cmd.ReturnValues),
	}
	if cmd.ConditionExpression != "" {
		input.ConditionExpression = aws.String(cmd.ConditionExpression)
	}
	if len(cmd.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = cmd.ExpressionAttributeNames
	}
	return input, nil
}

func deleteInput(cmd *core.DeleteItemCommand) (*dynamodb.DeleteItemInput, error) {
	if cmd == nil {
		return nil, fmt.Errorf("delete item command cannot be nil")
	}

	key, err := MarshalMap(cmd.Key)
	if err != nil {
		return nil, err
	}
	values, err := MarshalMap(cmd.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.DeleteItemInput{
		TableName:                 aws.String(cmd.TableName),
		Key:                       key,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValue(cmd.ReturnValues),
	}
	if cmd.ConditionExpression != "" {
		input.ConditionExpression = aws.String(cmd.ConditionExpression)
	}
	if len(cmd.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = cmd.ExpressionAttributeNames
	}
	return input, nil
}

func updateInput(cmd *core.UpdateItemCommand) (*dynamodb.UpdateItemInput, error) {
	if cmd == nil {
		return nil, fmt.Errorf("update item command cannot be nil")
	}

	key, err := MarshalMap(cmd.Key)
	if err != nil {
		return nil, err
	}
	values, err := MarshalMap(cmd.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(cmd.TableName),
		Key:                       key,
		UpdateExpression:          aws.String(cmd.UpdateExpression),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValue(cmd.ReturnValues),
	}
	if cmd.ConditionExpression != "" {
		input.ConditionExpression = aws.String(cmd.ConditionExpression)
	}
	if len(cmd.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = cmd.ExpressionAttributeNames
	}
	return input, nil
}
