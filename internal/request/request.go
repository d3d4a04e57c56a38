// Package request decodes YAML request documents into node trees for the
// command line tool.
//
// A document names one operation and carries the same settings the builder
// facade exposes:
//
//	operation: query
//	table: orders
//	keyConditions:
//	  - {path: userId, op: "=", values: ["123"]}
//	  - {path: createdAt, op: BETWEEN, values: [150, 500]}
//	filter:
//	  or:
//	    - {path: status, op: "=", values: [open]}
//	    - not: {path: archived, op: attribute_exists}
package request

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
	"github.com/pay-theory/dynaquery/pkg/schema"
)

// Operation names accepted in documents.
const (
	OpGet         = "get"
	OpQuery       = "query"
	OpScan        = "scan"
	OpPut         = "put"
	OpDelete      = "delete"
	OpUpdate      = "update"
	OpTransaction = "transaction"
)

// Request is one decoded document
type Request struct {
	Operation          string          `yaml:"operation"`
	Table              string          `yaml:"table"`
	Index              string          `yaml:"index"`
	Key                map[string]any  `yaml:"key"`
	Item               map[string]any  `yaml:"item"`
	KeyConditions      []KeyCondition  `yaml:"keyConditions"`
	Filter             *Condition      `yaml:"filter"`
	Condition          *Condition      `yaml:"condition"`
	Update             []UpdateClause  `yaml:"update"`
	Attributes         []string        `yaml:"attributes"`
	Limit              *int32          `yaml:"limit"`
	ScanIndexForward   *bool           `yaml:"scanIndexForward"`
	ConsistentRead     *bool           `yaml:"consistentRead"`
	Segment            *int32          `yaml:"segment"`
	TotalSegments      *int32          `yaml:"totalSegments"`
	StartKey           map[string]any  `yaml:"startKey"`
	ReturnValues       string          `yaml:"returnValues"`
	Transaction        []TransactionOp `yaml:"transaction"`
	ClientRequestToken string          `yaml:"clientRequestToken"`
}

// KeyCondition is one key condition of a query
type KeyCondition struct {
	Path   string `yaml:"path"`
	Op     string `yaml:"op"`
	Values []any  `yaml:"values"`
}

// Condition is a leaf (path, op, values) or exactly one of and, or, not.
type Condition struct {
	Path   string      `yaml:"path"`
	Op     string      `yaml:"op"`
	Values []any       `yaml:"values"`
	And    []Condition `yaml:"and"`
	Or     []Condition `yaml:"or"`
	Not    *Condition  `yaml:"not"`
}

// UpdateClause is one update instruction. Operand refines SET and is one of
// value, if_not_exists, list_append, list_prepend, increment or decrement.
type UpdateClause struct {
	Action  string `yaml:"action"`
	Path    string `yaml:"path"`
	Value   any    `yaml:"value"`
	Operand string `yaml:"operand"`
}

// TransactionOp is one write of a transaction. Exactly one field is set; the
// nested requests need no operation.
type TransactionOp struct {
	Put    *Request `yaml:"put"`
	Delete *Request `yaml:"delete"`
	Update *Request `yaml:"update"`
}

// Decode reads every document in r.
func Decode(r io.Reader) ([]*Request, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []*Request
	for {
		var req Request
		err := dec.Decode(&req)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode request %d: %w", len(out), err)
		}
		out = append(out, &req)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no request documents found")
	}
	return out, nil
}

// DecodeFile reads every document in the file at path. A path of "-" reads
// standard input.
func DecodeFile(path string) ([]*Request, error) {
	if path == "-" {
		return Decode(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open request file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Node converts the request into the node tree for its operation.
func (r *Request) Node() (node.Node, error) {
	switch strings.ToLower(r.Operation) {
	case OpGet:
		return &node.GetItemNode{
			Table:          r.Table,
			Key:            r.Key,
			Attributes:     r.Attributes,
			ConsistentRead: r.ConsistentRead,
		}, nil

	case OpQuery:
		filter, err := r.Filter.toNode()
		if err != nil {
			return nil, err
		}
		keyConditions := make([]node.KeyConditionNode, len(r.KeyConditions))
		for i, kc := range r.KeyConditions {
			keyConditions[i] = node.KeyConditionNode{
				Path:     kc.Path,
				Operator: node.Operator(kc.Op),
				Operands: kc.Values,
			}
		}
		return &node.QueryNode{
			Table:             r.Table,
			Index:             r.Index,
			KeyConditions:     keyConditions,
			Filter:            filter,
			Attributes:        r.Attributes,
			Limit:             r.Limit,
			ScanIndexForward:  r.ScanIndexForward,
			ConsistentRead:    r.ConsistentRead,
			ExclusiveStartKey: r.StartKey,
		}, nil

	case OpScan:
		filter, err := r.Filter.toNode()
		if err != nil {
			return nil, err
		}
		return &node.ScanNode{
			Table:             r.Table,
			Index:             r.Index,
			Filter:            filter,
			Attributes:        r.Attributes,
			Limit:             r.Limit,
			ConsistentRead:    r.ConsistentRead,
			Segment:           r.Segment,
			TotalSegments:     r.TotalSegments,
			ExclusiveStartKey: r.StartKey,
		}, nil

	case OpPut:
		n, err := r.putNode()
		if err != nil {
			return nil, err
		}
		return n, nil

	case OpDelete:
		n, err := r.deleteNode()
		if err != nil {
			return nil, err
		}
		return n, nil

	case OpUpdate:
		n, err := r.updateNode()
		if err != nil {
			return nil, err
		}
		return n, nil

	case OpTransaction:
		n, err := r.transactionNode()
		if err != nil {
			return nil, err
		}
		return n, nil
	}

	return nil, fmt.Errorf("%w: operation %q", errors.ErrUnsupportedNode, r.Operation)
}

func (r *Request) putNode() (*node.PutItemNode, error) {
	condition, err := r.Condition.toNode()
	if err != nil {
		return nil, err
	}
	return &node.PutItemNode{
		Table:        r.Table,
		Item:         r.Item,
		Condition:    condition,
		ReturnValues: node.ReturnValue(strings.ToUpper(r.ReturnValues)),
	}, nil
}

func (r *Request) deleteNode() (*node.DeleteItemNode, error) {
	condition, err := r.Condition.toNode()
	if err != nil {
		return nil, err
	}
	return &node.DeleteItemNode{
		Table:        r.Table,
		Key:          r.Key,
		Condition:    condition,
		ReturnValues: node.ReturnValue(strings.ToUpper(r.ReturnValues)),
	}, nil
}

func (r *Request) updateNode() (*node.UpdateItemNode, error) {
	condition, err := r.Condition.toNode()
	if err != nil {
		return nil, err
	}

	clauses := make([]node.UpdateClauseNode, len(r.Update))
	for i, u := range r.Update {
		operand, err := setOperand(u.Operand)
		if err != nil {
			return nil, fmt.Errorf("update clause %d: %w", i, err)
		}
		clauses[i] = node.UpdateClauseNode{
			Action:  node.UpdateAction(strings.ToUpper(u.Action)),
			Path:    u.Path,
			Value:   u.Value,
			Operand: operand,
		}
	}

	return &node.UpdateItemNode{
		Table:        r.Table,
		Key:          r.Key,
		Clauses:      clauses,
		Condition:    condition,
		ReturnValues: node.ReturnValue(strings.ToUpper(r.ReturnValues)),
	}, nil
}

func (r *Request) transactionNode() (*node.TransactionNode, error) {
	n := &node.TransactionNode{
		Items:              make([]node.TransactItemNode, len(r.Transaction)),
		ClientRequestToken: r.ClientRequestToken,
	}

	for i, op := range r.Transaction {
		var err error
		item := &n.Items[i]
		if op.Put != nil {
			if item.Put, err = op.Put.putNode(); err != nil {
				return nil, fmt.Errorf("transaction item %d: %w", i, err)
			}
		}
		if op.Delete != nil {
			if item.Delete, err = op.Delete.deleteNode(); err != nil {
				return nil, fmt.Errorf("transaction item %d: %w", i, err)
			}
		}
		if op.Update != nil {
			if item.Update, err = op.Update.updateNode(); err != nil {
				return nil, fmt.Errorf("transaction item %d: %w", i, err)
			}
		}
	}
	return n, nil
}

func setOperand(s string) (node.SetOperand, error) {
	switch strings.ToLower(s) {
	case "", "value":
		return node.SetValue, nil
	case "if_not_exists":
		return node.SetIfNotExists, nil
	case "list_append":
		return node.SetListAppend, nil
	case "list_prepend":
		return node.SetListPrepend, nil
	case "increment":
		return node.SetIncrement, nil
	case "decrement":
		return node.SetDecrement, nil
	}
	return 0, fmt.Errorf("%w: operand %q", errors.ErrInvalidUpdateAction, s)
}

// toNode converts the YAML condition. A nil condition yields nil.
func (c *Condition) toNode() (*node.ConditionNode, error) {
	if c == nil {
		return nil, nil
	}
	n, err := c.convert()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Condition) convert() (node.ConditionNode, error) {
	forms := 0
	for _, set := range []bool{c.Path != "" || c.Op != "", len(c.And) > 0, len(c.Or) > 0, c.Not != nil} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return node.ConditionNode{}, fmt.Errorf("%w: condition needs exactly one of a leaf, and, or, not",
			errors.ErrInvalidOperand)
	}

	switch {
	case c.Not != nil:
		inner, err := c.Not.convert()
		if err != nil {
			return node.ConditionNode{}, err
		}
		return node.Not(inner), nil
	case len(c.And) > 0:
		return group(node.And, c.And)
	case len(c.Or) > 0:
		return group(node.Or, c.Or)
	}
	return node.Leaf(c.Path, node.Operator(c.Op), c.Values...), nil
}

func group(conn node.Connective, conditions []Condition) (node.ConditionNode, error) {
	children := make([]node.ConditionNode, len(conditions))
	for i := range conditions {
		child, err := conditions[i].convert()
		if err != nil {
			return node.ConditionNode{}, err
		}
		children[i] = child
	}
	return node.Group(conn, children...), nil
}

// Validate checks keys and key conditions against reg. Tables without a
// registered schema are skipped, as are requests without a key.
func (r *Request) Validate(reg *schema.Registry) error {
	if reg == nil {
		return nil
	}

	if strings.ToLower(r.Operation) == OpTransaction {
		for i, op := range r.Transaction {
			writes := []struct {
				kind string
				sub  *Request
			}{{OpPut, op.Put}, {OpDelete, op.Delete}, {OpUpdate, op.Update}}
			for _, w := range writes {
				if w.sub == nil {
					continue
				}
				if err := w.sub.validateTable(reg, w.kind); err != nil {
					return fmt.Errorf("transaction item %d: %w", i, err)
				}
			}
		}
		return nil
	}
	return r.validateTable(reg, strings.ToLower(r.Operation))
}

func (r *Request) validateTable(reg *schema.Registry, op string) error {
	if !reg.Has(r.Table) {
		return nil
	}
	t, err := reg.Table(r.Table)
	if err != nil {
		return err
	}

	switch op {
	case OpGet, OpDelete, OpUpdate:
		if len(r.Key) > 0 {
			return t.ValidateKey(r.Key)
		}
	case OpPut:
		if len(r.Item) > 0 {
			return t.ValidateItem(r.Item)
		}
	case OpQuery:
		keys, err := t.Keys(r.Index)
		if err != nil {
			return err
		}
		conds := make([]node.KeyConditionNode, len(r.KeyConditions))
		for i, kc := range r.KeyConditions {
			conds[i] = node.KeyConditionNode{Path: kc.Path, Operator: node.Operator(kc.Op)}
		}
		if len(conds) > 0 {
			return keys.ValidateKeyConditions(conds)
		}
	}
	return nil
}
