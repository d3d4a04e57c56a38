package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/dynaquery/pkg/mocks"
	"github.com/pay-theory/dynaquery/pkg/session"
)

const schemaDoc = `
tables:
  - name: myTable
    partitionKey: userId
    sortKey: dataTimestamp
    attributes:
      dataTimestamp: N
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the root command with a mocked client and returns stdout.
func run(t *testing.T, client *mocks.MockDynamoDBClient, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		newClient: func(context.Context, session.Config) (Client, error) {
			return client, nil
		},
	}
	cmd := newRootCommand(opts)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCompile_PrintsCommands(t *testing.T) {
	reqFile := writeFile(t, "req.yaml", `
operation: query
table: myTable
keyConditions:
  - {path: userId, op: "=", values: ["123"]}
  - {path: dataTimestamp, op: BETWEEN, values: [150, 500]}
filter:
  or:
    - {path: someBoolean, op: "=", values: [true]}
    - {path: somethingElse, op: "=", values: [2]}
---
operation: get
table: myTable
key: {userId: "123", dataTimestamp: 150}
`)

	out, err := run(t, new(mocks.MockDynamoDBClient), "compile", "--compact", reqFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var query map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &query))
	assert.Equal(t, "myTable", query["TableName"])
	assert.Equal(t, "#n0 = :v0 AND #n1 BETWEEN :v1 AND :v2", query["KeyConditionExpression"])
	assert.Equal(t, "#n2 = :v3 OR #n3 = :v4", query["FilterExpression"])
	assert.NotContains(t, query, "Limit")

	var get map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &get))
	assert.Equal(t, map[string]any{"userId": "123", "dataTimestamp": float64(150)}, get["Key"])
}

func TestCompile_SchemaRejectsBadKey(t *testing.T) {
	schemaFile := writeFile(t, "schema.yaml", schemaDoc)
	reqFile := writeFile(t, "req.yaml", "operation: get\ntable: myTable\nkey: {userId: u1}\n")

	_, err := run(t, new(mocks.MockDynamoDBClient), "--schema", schemaFile, "compile", reqFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 0")
}

func TestCompile_MissingFile(t *testing.T) {
	_, err := run(t, new(mocks.MockDynamoDBClient), "compile", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestExec_SendsInOrder(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == "myTable"
	}), mock.Anything).Return(&dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: "u1"},
			"name":   &types.AttributeValueMemberS{Value: "Ada"},
		},
	}, nil).Once()
	client.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return aws.ToString(in.ClientRequestToken) != "" && len(in.TransactItems) == 1
	}), mock.Anything).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

	reqFile := writeFile(t, "req.yaml", `
operation: get
table: myTable
key: {userId: u1}
---
operation: transaction
transaction:
  - delete: {table: myTable, key: {userId: u1}}
`)

	out, err := run(t, client, "exec", "--compact", reqFile)
	require.NoError(t, err)
	client.AssertExpectations(t)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var get map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &get))
	assert.Equal(t, "GetItem", get["operation"])
	assert.Equal(t, map[string]any{"userId": "u1", "name": "Ada"}, get["item"])

	var tx map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &tx))
	assert.Equal(t, "TransactWriteItems", tx["operation"])
	assert.Equal(t, float64(1), tx["count"])
}

func TestExec_MalformedFileSendsNothing(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	reqFile := writeFile(t, "req.yaml", `
operation: get
table: myTable
key: {userId: u1}
---
operation: merge
table: myTable
`)

	_, err := run(t, client, "exec", reqFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 1")
	client.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestTableCreate_All(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "myTable" &&
			in.BillingMode == types.BillingModeProvisioned &&
			aws.ToInt64(in.ProvisionedThroughput.ReadCapacityUnits) == 10
	}), mock.Anything).Return(&dynamodb.CreateTableOutput{}, nil).Once()

	schemaFile := writeFile(t, "schema.yaml", schemaDoc)
	out, err := run(t, client, "--schema", schemaFile,
		"table", "create", "--all", "--provisioned", "--rcu", "10", "--wait", "0")
	require.NoError(t, err)
	assert.Equal(t, "created myTable\n", out)
	client.AssertExpectations(t)
}

func TestTableCreate_NeedsSchema(t *testing.T) {
	_, err := run(t, new(mocks.MockDynamoDBClient), "table", "create", "myTable")
	assert.ErrorContains(t, err, "--schema")
}

func TestTableDescribe(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("DescribeTable", mock.Anything, mock.Anything, mock.Anything).Return(&dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   aws.String("myTable"),
			TableStatus: types.TableStatusActive,
			ItemCount:   aws.Int64(42),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
				{IndexName: aws.String("byFlag")},
			},
		},
	}, nil)

	out, err := run(t, client, "table", "describe", "myTable")
	require.NoError(t, err)

	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "ACTIVE", st["status"])
	assert.Equal(t, float64(42), st["itemCount"])
	assert.Equal(t, []any{"byFlag"}, st["indexes"])
}

func TestTableDelete(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("DeleteTable", mock.Anything, mock.Anything, mock.Anything).Return(&dynamodb.DeleteTableOutput{}, nil).Twice()

	out, err := run(t, client, "table", "delete", "--wait", "0", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "deleted a\ndeleted b\n", out)
	client.AssertExpectations(t)
}

func TestLoad_EnvironmentOverridesConfigFile(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", "region: eu-west-1\nendpoint: http://localhost:8000\n")
	t.Setenv("DYNAQUERY_REGION", "ap-south-1")

	opts := &RootOptions{newClient: sessionClient}
	cmd := newRootCommand(opts)
	opts.ConfigFile = cfgFile
	require.NoError(t, opts.load())

	assert.Equal(t, "ap-south-1", opts.sessionCfg.Region)
	assert.Equal(t, "http://localhost:8000", opts.sessionCfg.Endpoint)
	assert.NotNil(t, cmd)
}
