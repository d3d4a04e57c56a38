// Package core defines the command payloads produced by the compiler and
// consumed by the transport.
//
// Field names and JSON tags follow the DynamoDB wire schema. Expression
// fields are left empty, and placeholder maps nil, when the node tree had
// nothing to compile for them, so they are omitted from the serialized form.
package core

// Operation names a command kind.
type Operation string

// Operations.
const (
	OpGetItem            Operation = "GetItem"
	OpQuery              Operation = "Query"
	OpScan               Operation = "Scan"
	OpPutItem            Operation = "PutItem"
	OpDeleteItem         Operation = "DeleteItem"
	OpUpdateItem         Operation = "UpdateItem"
	OpTransactWriteItems Operation = "TransactWriteItems"
)

// Command is a fully resolved request ready for the transport.
type Command interface {
	Operation() Operation
}

// GetItemCommand reads one item by key.
type GetItemCommand struct {
	TableName                string            `json:"TableName"`
	Key                      map[string]any    `json:"Key"`
	ProjectionExpression     string            `json:"ProjectionExpression,omitempty"`
	ExpressionAttributeNames map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ConsistentRead           *bool             `json:"ConsistentRead,omitempty"`
}

// QueryCommand reads items under one partition key.
type QueryCommand struct {
	TableName                 string            `json:"TableName"`
	IndexName                 string            `json:"IndexName,omitempty"`
	KeyConditionExpression    string            `json:"KeyConditionExpression"`
	FilterExpression          string            `json:"FilterExpression,omitempty"`
	ProjectionExpression      string            `json:"ProjectionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues map[string]any    `json:"ExpressionAttributeValues,omitempty"`
	Limit                     *int32            `json:"Limit,omitempty"`
	ScanIndexForward          *bool             `json:"ScanIndexForward,omitempty"`
	ConsistentRead            *bool             `json:"ConsistentRead,omitempty"`
	ExclusiveStartKey         map[string]any    `json:"ExclusiveStartKey,omitempty"`
}

// ScanCommand reads every item of a table or index.
type ScanCommand struct {
	TableName                 string            `json:"TableName"`
	IndexName                 string            `json:"IndexName,omitempty"`
	FilterExpression          string            `json:"FilterExpression,omitempty"`
	ProjectionExpression      string            `json:"ProjectionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues map[string]any    `json:"ExpressionAttributeValues,omitempty"`
	Limit                     *int32            `json:"Limit,omitempty"`
	ConsistentRead            *bool             `json:"ConsistentRead,omitempty"`
	Segment                   *int32            `json:"Segment,omitempty"`
	TotalSegments             *int32            `json:"TotalSegments,omitempty"`
	ExclusiveStartKey         map[string]any    `json:"ExclusiveStartKey,omitempty"`
}

// PutItemCommand writes a full item.
type PutItemCommand struct {
	TableName                 string            `json:"TableName"`
	Item                      map[string]any    `json:"Item"`
	ConditionExpression       string            `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues map[string]any    `json:"ExpressionAttributeValues,omitempty"`
	ReturnValues              string            `json:"ReturnValues,omitempty"`
}

// DeleteItemCommand removes one item by key.
type DeleteItemCommand struct {
	TableName                 string            `json:"TableName"`
	Key                       map[string]any    `json:"Key"`
	ConditionExpression       string            `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues map[string]any    `json:"ExpressionAttributeValues,omitempty"`
	ReturnValues              string            `json:"ReturnValues,omitempty"`
}

// UpdateItemCommand modifies one item in place.
type UpdateItemCommand struct {
	TableName                 string            `json:"TableName"`
	Key                       map[string]any    `json:"Key"`
	UpdateExpression          string            `json:"UpdateExpression"`
	ConditionExpression       string            `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues map[string]any    `json:"ExpressionAttributeValues,omitempty"`
	ReturnValues              string            `json:"ReturnValues,omitempty"`
}

// TransactWriteItem is one entry of a transaction. Exactly one field is set.
type TransactWriteItem struct {
	Put    *PutItemCommand    `json:"Put,omitempty"`
	Delete *DeleteItemCommand `json:"Delete,omitempty"`
	Update *UpdateItemCommand `json:"Update,omitempty"`
}

// TransactWriteCommand applies its items all-or-nothing, in order.
type TransactWriteCommand struct {
	TransactItems      []TransactWriteItem `json:"TransactItems"`
	ClientRequestToken string              `json:"ClientRequestToken,omitempty"`
}

func (*GetItemCommand) Operation() Operation       { return OpGetItem }
func (*QueryCommand) Operation() Operation         { return OpQuery }
func (*ScanCommand) Operation() Operation          { return OpScan }
func (*PutItemCommand) Operation() Operation       { return OpPutItem }
func (*DeleteItemCommand) Operation() Operation    { return OpDeleteItem }
func (*UpdateItemCommand) Operation() Operation    { return OpUpdateItem }
func (*TransactWriteCommand) Operation() Operation { return OpTransactWriteItems }
