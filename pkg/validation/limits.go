// Package validation checks names and compiled expressions against DynamoDB
// service limits before anything is sent.
package validation

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/pay-theory/dynaquery/pkg/errors"
)

// Service limits
const (
	MaxKeyNameLength    = 255
	MinTableNameLength  = 3
	MaxTableNameLength  = 255
	MaxNestedDepth      = 32
	MaxExpressionLength = 4096
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// LimitError describes which limit a value broke. It unwraps to the matching
// sentinel from the errors package.
type LimitError struct {
	Type   string
	Field  string
	Detail string
	Err    error
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("validation failed [%s]: %s - %s", e.Type, e.Field, e.Detail)
}

func (e *LimitError) Unwrap() error {
	return e.Err
}

// ValidateTableName validates a DynamoDB table name
func ValidateTableName(name string) error {
	return validateResourceName("InvalidTableName", name)
}

// ValidateIndexName validates a DynamoDB index name. Index names follow the
// table name rules.
func ValidateIndexName(name string) error {
	return validateResourceName("InvalidIndexName", name)
}

func validateResourceName(kind, name string) error {
	if len(name) < MinTableNameLength || len(name) > MaxTableNameLength {
		return &LimitError{
			Type:   kind,
			Field:  name,
			Detail: fmt.Sprintf("name must be %d-%d characters", MinTableNameLength, MaxTableNameLength),
			Err:    errors.ErrInvalidName,
		}
	}
	if !tableNamePattern.MatchString(name) {
		return &LimitError{
			Type:   kind,
			Field:  name,
			Detail: "name can only contain letters, numbers, dots, dashes, and underscores",
			Err:    errors.ErrInvalidName,
		}
	}
	return nil
}

// ValidateKeyName validates the name of a partition or sort key attribute.
func ValidateKeyName(name string) error {
	if name == "" || len(name) > MaxKeyNameLength {
		return &LimitError{
			Type:   "InvalidKeyName",
			Field:  name,
			Detail: fmt.Sprintf("key attribute name must be 1-%d bytes", MaxKeyNameLength),
			Err:    errors.ErrInvalidName,
		}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return &LimitError{
				Type:   "InvalidKeyName",
				Field:  name,
				Detail: "key attribute name contains control characters",
				Err:    errors.ErrInvalidName,
			}
		}
	}
	return nil
}

// ValidateDepth checks the number of segments in a document path.
func ValidateDepth(path string, segments int) error {
	if segments > MaxNestedDepth {
		return &LimitError{
			Type:   "InvalidPath",
			Field:  path,
			Detail: fmt.Sprintf("nesting depth %d exceeds maximum of %d", segments, MaxNestedDepth),
			Err:    errors.ErrInvalidAttributePath,
		}
	}
	return nil
}

// ValidateExpression checks the length of one compiled expression. kind
// names the expression in the error, as in "FilterExpression".
func ValidateExpression(kind, expression string) error {
	if len(expression) > MaxExpressionLength {
		return &LimitError{
			Type:   "InvalidExpression",
			Field:  kind,
			Detail: fmt.Sprintf("%d bytes exceeds maximum of %d", len(expression), MaxExpressionLength),
			Err:    errors.ErrExpressionTooLong,
		}
	}
	return nil
}
