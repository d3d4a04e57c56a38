// Package mocks provides mock implementations for dynaquery interfaces.
//
// The mocks are built on github.com/stretchr/testify/mock, so expectations,
// argument matchers and AssertExpectations work as usual.
//
// # Basic Usage
//
// Hand the mock client to the facade and set the responses your code needs:
//
//	func TestUserService(t *testing.T) {
//	    client := new(mocks.MockDynamoDBClient)
//	    client.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
//	        Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
//	            "userId": &types.AttributeValueMemberS{Value: "u1"},
//	        }}, nil)
//
//	    db := dynaquery.NewWithClient(client)
//	    service := NewUserService(db)
//	    user, err := service.GetUser(ctx, "u1")
//
//	    client.AssertExpectations(t)
//	}
//
// # Inspecting Requests
//
// Use mock.MatchedBy to assert on the compiled expressions that reach the
// client:
//
//	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
//	    return aws.ToString(in.KeyConditionExpression) == "#n0 = :v0"
//	}), mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
//
// # Error Handling
//
// To simulate a failed conditional write:
//
//	client.On("PutItem", mock.Anything, mock.Anything, mock.Anything).
//	    Return(nil, &types.ConditionalCheckFailedException{})
package mocks

// Client is an alias for MockDynamoDBClient to allow shorter declarations
type Client = MockDynamoDBClient
