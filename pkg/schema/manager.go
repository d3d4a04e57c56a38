package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/validation"
)

// DefaultWaitTimeout bounds how long table operations wait for the table
// to settle.
const DefaultWaitTimeout = 5 * time.Minute

// TableAPI is the subset of the DynamoDB client the Manager needs.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

// Manager creates and removes the tables described in a Registry.
type Manager struct {
	client   TableAPI
	registry *Registry
	logger   *zap.Logger
	wait     time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithWaitTimeout sets how long to wait for a table to become active or
// disappear. Zero disables waiting.
func WithWaitTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.wait = d }
}

// WithManagerLogger sets the logger used for table operations.
func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new schema manager
func NewManager(client TableAPI, registry *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:   client,
		registry: registry,
		logger:   zap.NewNop(),
		wait:     DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TableOption configures table creation options
type TableOption func(*dynamodb.CreateTableInput)

// WithBillingMode sets the billing mode for the table
func WithBillingMode(mode types.BillingMode) TableOption {
	return func(input *dynamodb.CreateTableInput) {
		input.BillingMode = mode
		if mode == types.BillingModePayPerRequest {
			input.ProvisionedThroughput = nil
		}
	}
}

// WithThroughput sets provisioned throughput for the table
func WithThroughput(rcu, wcu int64) TableOption {
	return func(input *dynamodb.CreateTableInput) {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(rcu),
			WriteCapacityUnits: aws.Int64(wcu),
		}
	}
}

// WithStreamSpecification enables DynamoDB streams
func WithStreamSpecification(spec types.StreamSpecification) TableOption {
	return func(input *dynamodb.CreateTableInput) {
		input.StreamSpecification = &spec
	}
}

// CreateTableInput builds the create request for a registered table.
// Global indexes on provisioned tables inherit the table's throughput.
func (m *Manager) CreateTableInput(name string, opts ...TableOption) (*dynamodb.CreateTableInput, error) {
	t, err := m.registry.Table(name)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateTableName(t.Name); err != nil {
		return nil, err
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		BillingMode:          types.BillingModePayPerRequest,
		KeySchema:            keySchema(t.PartitionKey, t.SortKey),
		AttributeDefinitions: attributeDefinitions(t),
	}

	gsiList, lsiList := buildIndexes(t)
	if len(gsiList) > 0 {
		input.GlobalSecondaryIndexes = gsiList
	}
	if len(lsiList) > 0 {
		input.LocalSecondaryIndexes = lsiList
	}

	for _, opt := range opts {
		opt(input)
	}

	if input.ProvisionedThroughput != nil {
		for i := range input.GlobalSecondaryIndexes {
			input.GlobalSecondaryIndexes[i].ProvisionedThroughput = input.ProvisionedThroughput
		}
	}
	return input, nil
}

// CreateTable creates a registered table and waits for it to become active.
// A table that already exists is left alone.
func (m *Manager) CreateTable(ctx context.Context, name string, opts ...TableOption) error {
	input, err := m.CreateTableInput(name, opts...)
	if err != nil {
		return err
	}

	m.logger.Info("creating table", zap.String("table", name))
	if _, err := m.client.CreateTable(ctx, input); err != nil {
		var existsErr *types.ResourceInUseException
		if errors.As(err, &existsErr) {
			m.logger.Info("table already exists", zap.String("table", name))
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	if m.wait <= 0 {
		return nil
	}
	waiter := dynamodb.NewTableExistsWaiter(m.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, m.wait); err != nil {
		return fmt.Errorf("failed waiting for table %s to be active: %w", name, err)
	}
	return nil
}

// TableExists checks if a table exists
func (m *Manager) TableExists(ctx context.Context, name string) (bool, error) {
	_, err := m.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DescribeTable returns the live description of a table.
func (m *Manager) DescribeTable(ctx context.Context, name string) (*types.TableDescription, error) {
	output, err := m.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", name, err)
	}
	return output.Table, nil
}

// DeleteTable deletes a table and waits for it to disappear. Deleting a
// table that does not exist is not an error.
func (m *Manager) DeleteTable(ctx context.Context, name string) error {
	m.logger.Info("deleting table", zap.String("table", name))
	_, err := m.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return nil
		}
		return fmt.Errorf("failed to delete table %s: %w", name, err)
	}

	if m.wait <= 0 {
		return nil
	}
	waiter := dynamodb.NewTableNotExistsWaiter(m.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, m.wait); err != nil {
		return fmt.Errorf("failed waiting for table %s to be deleted: %w", name, err)
	}
	return nil
}

func keySchema(partitionKey, sortKey string) []types.KeySchemaElement {
	elems := []types.KeySchemaElement{
		{
			AttributeName: aws.String(partitionKey),
			KeyType:       types.KeyTypeHash,
		},
	}
	if sortKey != "" {
		elems = append(elems, types.KeySchemaElement{
			AttributeName: aws.String(sortKey),
			KeyType:       types.KeyTypeRange,
		})
	}
	return elems
}

// attributeDefinitions declares every attribute used by the table or index
// keys, sorted by name.
func attributeDefinitions(t *Table) []types.AttributeDefinition {
	attrs := map[string]struct{}{t.PartitionKey: {}}
	if t.SortKey != "" {
		attrs[t.SortKey] = struct{}{}
	}
	for _, idx := range t.Indexes {
		attrs[idx.PartitionKey] = struct{}{}
		if idx.SortKey != "" {
			attrs[idx.SortKey] = struct{}{}
		}
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	definitions := make([]types.AttributeDefinition, 0, len(names))
	for _, name := range names {
		definitions = append(definitions, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: t.attributeType(name),
		})
	}
	return definitions
}

func (t *Table) attributeType(name string) types.ScalarAttributeType {
	if typ, ok := t.Attributes[name]; ok {
		return types.ScalarAttributeType(typ)
	}
	return types.ScalarAttributeTypeS
}

func buildIndexes(t *Table) ([]types.GlobalSecondaryIndex, []types.LocalSecondaryIndex) {
	var gsiList []types.GlobalSecondaryIndex
	var lsiList []types.LocalSecondaryIndex

	for _, idx := range t.Indexes {
		projection := &types.Projection{ProjectionType: types.ProjectionTypeAll}
		if idx.Projection != "" {
			projection.ProjectionType = types.ProjectionType(idx.Projection)
			if projection.ProjectionType == types.ProjectionTypeInclude {
				projection.NonKeyAttributes = idx.NonKeyAttributes
			}
		}

		if idx.Local {
			lsiList = append(lsiList, types.LocalSecondaryIndex{
				IndexName:  aws.String(idx.Name),
				KeySchema:  keySchema(t.PartitionKey, idx.SortKey),
				Projection: projection,
			})
			continue
		}
		gsiList = append(gsiList, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.PartitionKey, idx.SortKey),
			Projection: projection,
		})
	}

	return gsiList, lsiList
}
