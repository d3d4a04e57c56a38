// Package errors defines error types and utilities for dynaquery
package errors

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Structural errors raised while compiling a node tree. None of them are
// retried; the caller fixes the builder chain and compiles again.
var (
	// ErrMissingKeyCondition is returned when a Query has no key condition or
	// a single-item operation has no key
	ErrMissingKeyCondition = errors.New("missing key condition")

	// ErrInvalidTransactItem is returned when a transact item does not carry
	// exactly one of Put, Delete or Update
	ErrInvalidTransactItem = errors.New("invalid transact item")

	// ErrInvalidOperatorForContext is returned when a key condition uses an
	// operator that is only valid in filter or condition expressions
	ErrInvalidOperatorForContext = errors.New("operator not valid in this context")

	// ErrEmptyUpdateClauseList is returned when an update has no clauses
	ErrEmptyUpdateClauseList = errors.New("update requires at least one clause")

	// ErrInvalidOperator is returned when an operator is not recognised at all
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidOperand is returned when an operator receives the wrong
	// number of operands
	ErrInvalidOperand = errors.New("invalid operand count")

	// ErrInvalidAttributePath is returned when an attribute path cannot be parsed
	ErrInvalidAttributePath = errors.New("invalid attribute path")

	// ErrInvalidUpdateAction is returned for an unknown update clause action
	ErrInvalidUpdateAction = errors.New("invalid update action")

	// ErrMissingTableName is returned when an operation names no table
	ErrMissingTableName = errors.New("missing table name")

	// ErrEmptyItem is returned when a put carries no attributes
	ErrEmptyItem = errors.New("empty item")

	// ErrEmptyTransaction is returned when a transaction has no items
	ErrEmptyTransaction = errors.New("transaction has no items")

	// ErrTooManyTransactItems is returned when a transaction exceeds the
	// per-request item limit
	ErrTooManyTransactItems = errors.New("too many transact items")

	// ErrUnsupportedNode is returned when the compiler receives a node kind it
	// cannot turn into a command
	ErrUnsupportedNode = errors.New("unsupported node")

	// ErrExpressionTooLong is returned when a compiled expression exceeds the
	// service limit
	ErrExpressionTooLong = errors.New("expression too long")
)

// Schema validation errors raised by the builder facade.
var (
	// ErrTableNotFound is returned when a table has no registered schema
	ErrTableNotFound = errors.New("table not found")

	// ErrIndexNotFound is returned when a specified index doesn't exist
	ErrIndexNotFound = errors.New("index not found")

	// ErrMissingPrimaryKey is returned when a key lacks the partition or sort key
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrInvalidPrimaryKey is returned when a key carries non-key attributes
	ErrInvalidPrimaryKey = errors.New("invalid primary key")

	// ErrInvalidKeyCondition is returned when a key condition targets a
	// non-key attribute or uses a range operator on the partition key
	ErrInvalidKeyCondition = errors.New("invalid key condition")

	// ErrInvalidAttributeType is returned when a key attribute type is not
	// S, N or B
	ErrInvalidAttributeType = errors.New("invalid attribute type")

	// ErrInvalidName indicates a table, index or key attribute name DynamoDB
	// would reject.
	ErrInvalidName = errors.New("invalid name")
)

// ErrItemNotFound is returned when a get finds no item
var ErrItemNotFound = errors.New("item not found")

// Error represents a detailed error with context
type Error struct {
	Op    string // Operation that failed
	Table string // Target table, empty for transactions
	Err   error  // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("dynaquery: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("dynaquery: %s on %s failed: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error
func NewError(op, table string, err error) *Error {
	return &Error{
		Op:    op,
		Table: table,
		Err:   err,
	}
}

// IsNotFound checks if an error indicates an item was not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsConditionFailed reports whether a transport error is a failed
// conditional write. The error itself is left untouched.
func IsConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// IsTransactionCanceled reports whether a transport error is a canceled
// transaction, which is how conditional failures surface inside one.
func IsTransactionCanceled(err error) bool {
	var tce *types.TransactionCanceledException
	return errors.As(err, &tce)
}
