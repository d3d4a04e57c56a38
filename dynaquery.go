// Package dynaquery builds DynamoDB commands from fluent calls and sends them.
//
// Every builder method appends one node to the builder's tree. Compile turns
// the tree into a wire-shaped command without touching the network; Execute
// compiles and then sends the command.
//
//	db, err := dynaquery.New(session.Config{Region: "us-east-1"})
//
//	var orders []Order
//	_, err = db.Query("orders").
//	    KeyCondition("userId", "=", "123").
//	    KeyCondition("createdAt", "BETWEEN", 150, 500).
//	    Filter("status", "=", "open").
//	    Execute(ctx, &orders)
package dynaquery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/executor"
	"github.com/pay-theory/dynaquery/pkg/schema"
	"github.com/pay-theory/dynaquery/pkg/session"
)

// DB is the entry point for building and sending commands
type DB struct {
	client   executor.DynamoDBAPI
	executor *executor.Executor
	schema   *schema.Registry
	logger   *zap.Logger
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger used for every request. The default discards
// everything.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithSchema enables key validation for the tables in reg. Tables without a
// registered schema are not validated.
func WithSchema(reg *schema.Registry) Option {
	return func(db *DB) {
		db.schema = reg
	}
}

// New creates a DB backed by a DynamoDB client built from config
func New(config session.Config, opts ...Option) (*DB, error) {
	sess, err := session.NewSession(context.Background(), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	client, err := sess.Client()
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient creates a DB around an existing client, such as a mock.
func NewWithClient(client executor.DynamoDBAPI, opts ...Option) *DB {
	db := &DB{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.executor = executor.New(client, db.logger)
	return db
}

// WithFields returns a DB that adds fields to every log entry.
func (db *DB) WithFields(fields ...zap.Field) *DB {
	logger := db.logger.With(fields...)
	return &DB{
		client:   db.client,
		executor: executor.New(db.client, logger),
		schema:   db.schema,
		logger:   logger,
	}
}

// Executor returns the transport used by Execute.
func (db *DB) Executor() *executor.Executor {
	return db.executor
}

// Schema returns the registry used for validation, or nil.
func (db *DB) Schema() *schema.Registry {
	return db.schema
}

// table returns the schema for name, or nil when validation does not apply.
func (db *DB) table(name string) *schema.Table {
	if db.schema == nil || !db.schema.Has(name) {
		return nil
	}
	t, err := db.schema.Table(name)
	if err != nil {
		return nil
	}
	return t
}

// toAttributeMap accepts a plain map, an attribute value map or a struct
// tagged for attributevalue.
func toAttributeMap(op string, v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[string]types.AttributeValue:
		return fromAttributeValues(m), nil
	}

	avs, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, errors.NewError(op, "", fmt.Errorf("failed to marshal item: %w", err))
	}
	return fromAttributeValues(avs), nil
}

func fromAttributeValues(avs map[string]types.AttributeValue) map[string]any {
	out := make(map[string]any, len(avs))
	for name, av := range avs {
		out[name] = av
	}
	return out
}

func mergeKey(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for name, v := range src {
		dst[name] = v
	}
	return dst
}
