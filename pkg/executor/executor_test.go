package executor_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/executor"
	"github.com/pay-theory/dynaquery/pkg/mocks"
)

type user struct {
	ID   string `dynamodbav:"id"`
	Name string `dynamodbav:"name"`
	Age  int    `dynamodbav:"age"`
}

func userItem(id, name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":   &types.AttributeValueMemberS{Value: id},
		"name": &types.AttributeValueMemberS{Value: name},
	}
}

func TestExecutor_GetItem(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == "Users" &&
			aws.ToString(in.ProjectionExpression) == "#n0" &&
			in.ExpressionAttributeNames["#n0"] == "name" &&
			in.Key["id"].(*types.AttributeValueMemberS).Value == "u1" &&
			aws.ToBool(in.ConsistentRead)
	}), mock.Anything).Return(&dynamodb.GetItemOutput{Item: userItem("u1", "Ada")}, nil)

	var got user
	err := executor.New(client, nil).GetItem(context.Background(), &core.GetItemCommand{
		TableName:                "Users",
		Key:                      map[string]any{"id": "u1"},
		ProjectionExpression:     "#n0",
		ExpressionAttributeNames: map[string]string{"#n0": "name"},
		ConsistentRead:           aws.Bool(true),
	}, &got)

	require.NoError(t, err)
	assert.Equal(t, user{ID: "u1", Name: "Ada"}, got)
	client.AssertExpectations(t)
}

func TestExecutor_GetItem_NotFound(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
		Return(&dynamodb.GetItemOutput{}, nil)

	var got user
	err := executor.New(client, nil).GetItem(context.Background(), &core.GetItemCommand{
		TableName: "Users",
		Key:       map[string]any{"id": "missing"},
	}, &got)

	assert.ErrorIs(t, err, errors.ErrItemNotFound)
	assert.True(t, errors.IsNotFound(err))
}

func TestExecutor_QueryFollowsPages(t *testing.T) {
	lastKey := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u2"}}

	client := new(mocks.MockDynamoDBClient)
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	}), mock.Anything).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{userItem("u1", "Ada"), userItem("u2", "Bob")},
		ScannedCount:     3,
		LastEvaluatedKey: lastKey,
	}, nil).Once()
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	}), mock.Anything).Return(&dynamodb.QueryOutput{
		Items:        []map[string]types.AttributeValue{userItem("u3", "Cy")},
		ScannedCount: 1,
	}, nil).Once()

	var users []user
	page, err := executor.New(client, nil).Query(context.Background(), &core.QueryCommand{
		TableName:                 "Users",
		KeyConditionExpression:    "#n0 = :v0",
		FilterExpression:          "#n1 > :v1",
		ExpressionAttributeNames:  map[string]string{"#n0": "group", "#n1": "age"},
		ExpressionAttributeValues: map[string]any{":v0": "g1", ":v1": 18},
	}, &users)

	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Cy", users[2].Name)
	assert.Equal(t, 3, page.Count)
	assert.Equal(t, 4, page.ScannedCount)
	assert.False(t, page.HasMore())
	client.AssertExpectations(t)
}

func TestExecutor_QueryStopsAtLimit(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToInt32(in.Limit) == 2
	}), mock.Anything).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{userItem("u1", "Ada"), userItem("u2", "Bob")},
		LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u2"}},
	}, nil).Once()

	var users []user
	page, err := executor.New(client, nil).Query(context.Background(), &core.QueryCommand{
		TableName:              "Users",
		KeyConditionExpression: "#n0 = :v0",
		Limit:                  aws.Int32(2),
	}, &users)

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.True(t, page.HasMore())
	client.AssertNumberOfCalls(t, "Query", 1)
}

func TestExecutor_QueryTruncatesToLimit(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToInt32(in.Limit) == 4 && in.ExclusiveStartKey == nil
	}), mock.Anything).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{userItem("u1", "Ada"), userItem("u2", "Bob"), userItem("u3", "Cy")},
		ScannedCount:     3,
		LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u3"}},
	}, nil).Once()
	// A filtered page can come back with more items than asked for.
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToInt32(in.Limit) == 1 && in.ExclusiveStartKey != nil
	}), mock.Anything).Return(&dynamodb.QueryOutput{
		Items:        []map[string]types.AttributeValue{userItem("u4", "Di"), userItem("u5", "Ed"), userItem("u6", "Fa"), userItem("u7", "Gu")},
		ScannedCount: 4,
	}, nil).Once()

	var users []user
	page, err := executor.New(client, nil).Query(context.Background(), &core.QueryCommand{
		TableName:              "Users",
		KeyConditionExpression: "#n0 = :v0",
		Limit:                  aws.Int32(4),
	}, &users)

	require.NoError(t, err)
	require.Len(t, users, 4)
	assert.Equal(t, "Di", users[3].Name)
	assert.Equal(t, 4, page.Count)
	assert.Equal(t, 7, page.ScannedCount)
	assert.True(t, page.HasMore())
	assert.Equal(t, map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u4"}}, page.LastEvaluatedKey)
	client.AssertExpectations(t)
}

func TestExecutor_ScanTruncatesFirstPage(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Scan", mock.Anything, mock.Anything, mock.Anything).Return(&dynamodb.ScanOutput{
		Items:            []map[string]types.AttributeValue{userItem("u1", "Ada"), userItem("u2", "Bob"), userItem("u3", "Cy")},
		LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u3"}},
	}, nil).Once()

	var users []user
	page, err := executor.New(client, nil).Scan(context.Background(), &core.ScanCommand{
		TableName: "Users",
		Limit:     aws.Int32(2),
	}, &users)

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u2"}}, page.LastEvaluatedKey)
	client.AssertNumberOfCalls(t, "Scan", 1)
}

func TestExecutor_Scan(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return aws.ToInt32(in.Segment) == 1 && aws.ToInt32(in.TotalSegments) == 2 && in.FilterExpression == nil
	}), mock.Anything).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{userItem("u1", "Ada")},
	}, nil)

	var users []user
	page, err := executor.New(client, nil).Scan(context.Background(), &core.ScanCommand{
		TableName:     "Users",
		Segment:       aws.Int32(1),
		TotalSegments: aws.Int32(2),
	}, &users)

	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "Ada", users[0].Name)
}

func TestExecutor_ScanRejectsNonSliceDestination(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{userItem("u1", "Ada")}}, nil)

	var u user
	_, err := executor.New(client, nil).Scan(context.Background(), &core.ScanCommand{TableName: "Users"}, &u)
	assert.Error(t, err)
}

func TestExecutor_PutItem(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		_, isSet := in.Item["tags"].(*types.AttributeValueMemberSS)
		return aws.ToString(in.ConditionExpression) == "attribute_not_exists(#n0)" &&
			in.ReturnValues == types.ReturnValueAllOld &&
			in.ExpressionAttributeValues == nil &&
			isSet
	}), mock.Anything).Return(&dynamodb.PutItemOutput{Attributes: userItem("u1", "Old")}, nil)

	var old user
	err := executor.New(client, nil).PutItem(context.Background(), &core.PutItemCommand{
		TableName: "Users",
		Item: map[string]any{
			"id":   "u1",
			"name": "Ada",
			"tags": &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		},
		ConditionExpression:      "attribute_not_exists(#n0)",
		ExpressionAttributeNames: map[string]string{"#n0": "id"},
		ReturnValues:             "ALL_OLD",
	}, &old)

	require.NoError(t, err)
	assert.Equal(t, "Old", old.Name)
}

func TestExecutor_PutItem_ConditionFailedIsPreserved(t *testing.T) {
	ccf := &types.ConditionalCheckFailedException{Message: aws.String("nope")}
	client := new(mocks.MockDynamoDBClient)
	client.On("PutItem", mock.Anything, mock.Anything, mock.Anything).Return(nil, ccf)

	obs, logs := observer.New(zapcore.DebugLevel)
	err := executor.New(client, zap.New(obs)).PutItem(context.Background(), &core.PutItemCommand{
		TableName:           "Users",
		Item:                map[string]any{"id": "u1"},
		ConditionExpression: "attribute_not_exists(#n0)",
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.IsConditionFailed(err))

	var got *types.ConditionalCheckFailedException
	require.True(t, stderrors.As(err, &got))
	assert.Same(t, ccf, got)

	assert.Equal(t, 1, logs.FilterMessage("sending request").Len())
	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "PutItem", failed[0].ContextMap()["operation"])
	assert.Equal(t, "Users", failed[0].ContextMap()["table"])
}

func TestExecutor_UpdateAndDelete(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.UpdateExpression) == "SET #n0 = #n0 + :v0" && in.ConditionExpression == nil
	}), mock.Anything).Return(&dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{"age": &types.AttributeValueMemberN{Value: "31"}},
	}, nil)
	client.On("DeleteItem", mock.Anything, mock.Anything, mock.Anything).
		Return(&dynamodb.DeleteItemOutput{}, nil)

	exec := executor.New(client, nil)

	var updated user
	err := exec.UpdateItem(context.Background(), &core.UpdateItemCommand{
		TableName:                 "Users",
		Key:                       map[string]any{"id": "u1"},
		UpdateExpression:          "SET #n0 = #n0 + :v0",
		ExpressionAttributeNames:  map[string]string{"#n0": "age"},
		ExpressionAttributeValues: map[string]any{":v0": 1},
		ReturnValues:              "UPDATED_NEW",
	}, &updated)
	require.NoError(t, err)
	assert.Equal(t, 31, updated.Age)

	err = exec.DeleteItem(context.Background(), &core.DeleteItemCommand{
		TableName: "Users",
		Key:       map[string]any{"id": "u1"},
	}, nil)
	assert.NoError(t, err)
}

func TestExecutor_TransactWrite(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 3 &&
			in.TransactItems[0].Put != nil &&
			in.TransactItems[1].Delete != nil &&
			in.TransactItems[2].Update != nil &&
			aws.ToString(in.TransactItems[2].Update.ConditionExpression) == "#n1 >= :v1" &&
			aws.ToString(in.ClientRequestToken) == "tok"
	}), mock.Anything).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	err := executor.New(client, nil).TransactWrite(context.Background(), &core.TransactWriteCommand{
		TransactItems: []core.TransactWriteItem{
			{Put: &core.PutItemCommand{TableName: "Users", Item: map[string]any{"id": "u1"}}},
			{Delete: &core.DeleteItemCommand{TableName: "Users", Key: map[string]any{"id": "u2"}}},
			{Update: &core.UpdateItemCommand{
				TableName:                 "Accounts",
				Key:                       map[string]any{"id": "a"},
				UpdateExpression:          "SET #n0 = #n0 - :v0",
				ConditionExpression:       "#n1 >= :v1",
				ExpressionAttributeNames:  map[string]string{"#n0": "balance", "#n1": "balance"},
				ExpressionAttributeValues: map[string]any{":v0": 10, ":v1": 10},
			}},
		},
		ClientRequestToken: "tok",
	})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestExecutor_TransactWrite_Canceled(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("TransactWriteItems", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &types.TransactionCanceledException{Message: aws.String("canceled")})

	err := executor.New(client, nil).TransactWrite(context.Background(), &core.TransactWriteCommand{
		TransactItems: []core.TransactWriteItem{
			{Delete: &core.DeleteItemCommand{TableName: "Users", Key: map[string]any{"id": "u2"}}},
		},
	})
	assert.True(t, errors.IsTransactionCanceled(err))
}

func TestExecutor_Execute(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{userItem("u1", "Ada")},
		LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u1"}},
	}, nil)
	client.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
		Return(&dynamodb.GetItemOutput{Item: userItem("u1", "Ada")}, nil)

	exec := executor.New(client, nil)

	res, err := exec.Execute(context.Background(), &core.QueryCommand{
		TableName:              "Users",
		KeyConditionExpression: "#n0 = :v0",
		Limit:                  aws.Int32(1),
	})
	require.NoError(t, err)
	assert.Equal(t, core.OpQuery, res.Operation)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "Ada", res.Items[0]["name"])
	assert.Equal(t, map[string]any{"id": "u1"}, res.LastEvaluatedKey)

	res, err = exec.Execute(context.Background(), &core.GetItemCommand{
		TableName: "Users",
		Key:       map[string]any{"id": "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.Item["id"])

	_, err = exec.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestMarshalMap(t *testing.T) {
	out, err := executor.MarshalMap(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	ss := &types.AttributeValueMemberSS{Value: []string{"x"}}
	out, err = executor.MarshalMap(map[string]any{":v0": 5, ":v1": ss, ":v2": []any{"a", 1}})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "5"}, out[":v0"])
	assert.Same(t, ss, out[":v1"])
	assert.IsType(t, &types.AttributeValueMemberL{}, out[":v2"])
}
