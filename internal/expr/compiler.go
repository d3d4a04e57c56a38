// Package expr lowers condition, key condition, update and projection nodes
// into DynamoDB expression strings.
package expr

import (
	"fmt"
	"strings"

	"github.com/pay-theory/dynaquery/pkg/errors"
	"github.com/pay-theory/dynaquery/pkg/node"
)

// CompileCondition renders a condition tree. A nil tree, or a group with no
// renderable children, yields an empty string, which callers treat as "no
// expression".
func CompileCondition(c *node.ConditionNode, a *Allocator) (string, error) {
	rendered, _, err := compileNode(c, a)
	return rendered, err
}

// compileNode also reports whether the result is a bare join of two or more
// operands, which must be parenthesized when nested.
func compileNode(c *node.ConditionNode, a *Allocator) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	if !c.IsGroup() {
		rendered, err := compileLeaf(c.Path, c.Operator, c.Operands, a)
		return rendered, false, err
	}

	parts := make([]string, 0, len(c.Children))
	for i := range c.Children {
		rendered, compound, err := compileNode(&c.Children[i], a)
		if err != nil {
			return "", false, err
		}
		if rendered == "" {
			continue
		}
		if compound {
			rendered = "(" + rendered + ")"
		}
		parts = append(parts, rendered)
	}

	if len(parts) == 0 {
		return "", false, nil
	}

	joined := strings.Join(parts, " "+string(c.Connective)+" ")
	if c.Negated {
		return "NOT (" + joined + ")", false, nil
	}
	return joined, len(parts) > 1, nil
}

func compileLeaf(path string, op node.Operator, operands []any, a *Allocator) (string, error) {
	if err := checkOperands(op, operands); err != nil {
		return "", err
	}

	nameRef, err := a.Path(path)
	if err != nil {
		return "", err
	}

	switch op {
	case node.OpEqual, node.OpNotEqual, node.OpLessThan, node.OpLessOrEqual,
		node.OpGreaterThan, node.OpGreaterOrEqual:
		return fmt.Sprintf("%s %s %s", nameRef, op, a.Value(operands[0])), nil

	case node.OpBetween:
		low := a.Value(operands[0])
		high := a.Value(operands[1])
		return fmt.Sprintf("%s BETWEEN %s AND %s", nameRef, low, high), nil

	case node.OpIn:
		refs := make([]string, len(operands))
		for i, v := range operands {
			refs[i] = a.Value(v)
		}
		return fmt.Sprintf("%s IN (%s)", nameRef, strings.Join(refs, ", ")), nil

	case node.OpBeginsWith, node.OpContains, node.OpAttributeType:
		return fmt.Sprintf("%s(%s, %s)", op, nameRef, a.Value(operands[0])), nil

	case node.OpAttributeExists, node.OpAttributeNotExists:
		return fmt.Sprintf("%s(%s)", op, nameRef), nil
	}

	// checkOperands rejects unknown operators
	return "", fmt.Errorf("%w: %s", errors.ErrInvalidOperator, op)
}

// checkOperands validates operand arity before anything is allocated.
func checkOperands(op node.Operator, operands []any) error {
	want := 0
	switch op {
	case node.OpEqual, node.OpNotEqual, node.OpLessThan, node.OpLessOrEqual,
		node.OpGreaterThan, node.OpGreaterOrEqual,
		node.OpBeginsWith, node.OpContains, node.OpAttributeType:
		want = 1
	case node.OpBetween:
		want = 2
	case node.OpAttributeExists, node.OpAttributeNotExists:
		want = 0
	case node.OpIn:
		if len(operands) == 0 || len(operands) > node.MaxInOperands {
			return fmt.Errorf("%w: IN takes 1 to %d operands, got %d",
				errors.ErrInvalidOperand, node.MaxInOperands, len(operands))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", errors.ErrInvalidOperator, op)
	}

	if len(operands) != want {
		return fmt.Errorf("%w: %s takes %d operands, got %d",
			errors.ErrInvalidOperand, op, want, len(operands))
	}
	return nil
}

// CompileKeyCondition renders the key conditions of a Query joined by AND.
// At least one condition is required and each must use a key condition
// operator.
func CompileKeyCondition(conditions []node.KeyConditionNode, a *Allocator) (string, error) {
	if len(conditions) == 0 {
		return "", errors.ErrMissingKeyCondition
	}

	parts := make([]string, 0, len(conditions))
	for _, kc := range conditions {
		if !node.IsKeyConditionOperator(kc.Operator) {
			if !node.IsKnownOperator(kc.Operator) {
				return "", fmt.Errorf("%w: %q", errors.ErrInvalidOperator, kc.Operator)
			}
			return "", fmt.Errorf("%w: %s on %s", errors.ErrInvalidOperatorForContext, kc.Operator, kc.Path)
		}
		rendered, err := compileLeaf(kc.Path, kc.Operator, kc.Operands, a)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}

	return strings.Join(parts, " AND "), nil
}

// CompileUpdateClauses renders update clauses grouped into SET, REMOVE, ADD
// and DELETE sections, in that order.
func CompileUpdateClauses(clauses []node.UpdateClauseNode, a *Allocator) (string, error) {
	if len(clauses) == 0 {
		return "", errors.ErrEmptyUpdateClauseList
	}

	sections := make(map[node.UpdateAction][]string, len(node.UpdateActions))
	for _, clause := range clauses {
		rendered, err := compileClause(clause, a)
		if err != nil {
			return "", err
		}
		sections[clause.Action] = append(sections[clause.Action], rendered)
	}

	parts := make([]string, 0, len(sections))
	for _, action := range node.UpdateActions {
		if exprs := sections[action]; len(exprs) > 0 {
			parts = append(parts, string(action)+" "+strings.Join(exprs, ", "))
		}
	}
	return strings.Join(parts, " "), nil
}

func compileClause(clause node.UpdateClauseNode, a *Allocator) (string, error) {
	switch clause.Action {
	case node.ActionSet, node.ActionRemove, node.ActionAdd, node.ActionDelete:
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidUpdateAction, clause.Action)
	}

	nameRef, err := a.Path(clause.Path)
	if err != nil {
		return "", err
	}

	switch clause.Action {
	case node.ActionRemove:
		return nameRef, nil
	case node.ActionAdd, node.ActionDelete:
		return fmt.Sprintf("%s %s", nameRef, a.Value(clause.Value)), nil
	}

	valueRef := a.Value(clause.Value)
	switch clause.Operand {
	case node.SetIfNotExists:
		return fmt.Sprintf("%s = if_not_exists(%s, %s)", nameRef, nameRef, valueRef), nil
	case node.SetListAppend:
		return fmt.Sprintf("%s = list_append(%s, %s)", nameRef, nameRef, valueRef), nil
	case node.SetListPrepend:
		return fmt.Sprintf("%s = list_append(%s, %s)", nameRef, valueRef, nameRef), nil
	case node.SetIncrement:
		return fmt.Sprintf("%s = %s + %s", nameRef, nameRef, valueRef), nil
	case node.SetDecrement:
		return fmt.Sprintf("%s = %s - %s", nameRef, nameRef, valueRef), nil
	default:
		return fmt.Sprintf("%s = %s", nameRef, valueRef), nil
	}
}

// CompileProjection renders a projection list. An empty list yields an empty
// string.
func CompileProjection(attributes []string, a *Allocator) (string, error) {
	if len(attributes) == 0 {
		return "", nil
	}

	refs := make([]string, len(attributes))
	for i, attr := range attributes {
		ref, err := a.Path(attr)
		if err != nil {
			return "", err
		}
		refs[i] = ref
	}
	return strings.Join(refs, ", "), nil
}
