package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/core"
)

// Result is the untyped outcome of Execute. Items holds Query and Scan
// results; Item holds the GetItem result or the attributes returned by a
// write. LastEvaluatedKey is set when a Query or Scan stopped early.
type Result struct {
	Operation        core.Operation   `json:"operation"`
	Items            []map[string]any `json:"items,omitempty"`
	Item             map[string]any   `json:"item,omitempty"`
	Count            int              `json:"count"`
	LastEvaluatedKey map[string]any   `json:"lastEvaluatedKey,omitempty"`
}

// Execute sends any compiled command and decodes the response into generic
// maps.
func (e *Executor) Execute(ctx context.Context, cmd core.Command) (*Result, error) {
	res := &Result{}

	switch c := cmd.(type) {
	case *core.GetItemCommand:
		if err := e.GetItem(ctx, c, &res.Item); err != nil {
			return nil, err
		}
		res.Count = 1

	case *core.QueryCommand:
		page, err := e.Query(ctx, c, &res.Items)
		if err != nil {
			return nil, err
		}
		if err := res.setPage(page); err != nil {
			return nil, err
		}

	case *core.ScanCommand:
		page, err := e.Scan(ctx, c, &res.Items)
		if err != nil {
			return nil, err
		}
		if err := res.setPage(page); err != nil {
			return nil, err
		}

	case *core.PutItemCommand:
		if err := e.PutItem(ctx, c, &res.Item); err != nil {
			return nil, err
		}

	case *core.DeleteItemCommand:
		if err := e.DeleteItem(ctx, c, &res.Item); err != nil {
			return nil, err
		}

	case *core.UpdateItemCommand:
		if err := e.UpdateItem(ctx, c, &res.Item); err != nil {
			return nil, err
		}

	case *core.TransactWriteCommand:
		if err := e.TransactWrite(ctx, c); err != nil {
			return nil, err
		}
		res.Count = len(c.TransactItems)

	default:
		return nil, fmt.Errorf("unsupported command type %T", cmd)
	}

	res.Operation = cmd.Operation()
	return res, nil
}

func (r *Result) setPage(page *Page) error {
	r.Count = page.Count
	if !page.HasMore() {
		return nil
	}
	r.LastEvaluatedKey = map[string]any{}
	return UnmarshalItem(page.LastEvaluatedKey, &r.LastEvaluatedKey)
}

func (e *Executor) sending(op core.Operation, table string) {
	e.logger.Debug("sending request", zapOperation(op), zap.String("table", table))
}

func (e *Executor) failed(op core.Operation, table string, err error) {
	fields := []zap.Field{zapOperation(op), zap.Error(err)}
	if table != "" {
		fields = append(fields, zap.String("table", table))
	}
	e.logger.Warn("request failed", fields...)
}

func zapOperation(op core.Operation) zap.Field { return zap.String("operation", string(op)) }
func zapItems(n int) zap.Field                 { return zap.Int("item_count", n) }
