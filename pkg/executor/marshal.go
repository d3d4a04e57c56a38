package executor

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MarshalMap converts command values to attribute values. Values that are
// already attribute values, such as string sets, pass through untouched. A
// nil or empty map yields nil.
func MarshalMap(in map[string]any) (map[string]types.AttributeValue, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make(map[string]types.AttributeValue, len(in))
	for name, v := range in {
		if av, ok := v.(types.AttributeValue); ok {
			out[name] = av
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		out[name] = av
	}
	return out, nil
}

// UnmarshalItem decodes a single item into dest
func UnmarshalItem(item map[string]types.AttributeValue, dest any) error {
	if err := attributevalue.UnmarshalMap(item, dest); err != nil {
		return fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return nil
}

// UnmarshalItems decodes items into dest, which must be a pointer to a slice.
// A nil dest discards the items.
func UnmarshalItems(items []map[string]types.AttributeValue, dest any) error {
	if dest == nil {
		return nil
	}
	if v := reflect.ValueOf(dest); v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("destination must be a pointer to a slice, got %T", dest)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, dest); err != nil {
		return fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return nil
}
