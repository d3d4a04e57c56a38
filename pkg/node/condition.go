package node

// Operator is a comparison operator or condition function.
type Operator string

// Comparison operators.
const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "<>"
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpBetween        Operator = "BETWEEN"
	OpIn             Operator = "IN"
)

// Condition functions.
const (
	OpBeginsWith         Operator = "begins_with"
	OpContains           Operator = "contains"
	OpAttributeExists    Operator = "attribute_exists"
	OpAttributeNotExists Operator = "attribute_not_exists"
	OpAttributeType      Operator = "attribute_type"
)

// MaxInOperands is the largest operand list IN accepts.
const MaxInOperands = 100

var keyConditionOperators = map[Operator]bool{
	OpEqual:          true,
	OpLessThan:       true,
	OpLessOrEqual:    true,
	OpGreaterThan:    true,
	OpGreaterOrEqual: true,
	OpBetween:        true,
	OpBeginsWith:     true,
}

// IsKeyConditionOperator reports whether op may appear in a key condition.
func IsKeyConditionOperator(op Operator) bool {
	return keyConditionOperators[op]
}

// IsKnownOperator reports whether op is any supported operator or function.
func IsKnownOperator(op Operator) bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual,
		OpBetween, OpIn:
		return true
	}
	return IsFunction(op)
}

// IsFunction reports whether op renders as a function call.
func IsFunction(op Operator) bool {
	switch op {
	case OpBeginsWith, OpContains, OpAttributeExists, OpAttributeNotExists, OpAttributeType:
		return true
	}
	return false
}

// Connective joins the children of a condition group.
type Connective string

// Connectives.
const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// ConditionNode is either a leaf comparison or a group of child conditions.
// A node with a non-empty Connective is a group.
type ConditionNode struct {
	// Leaf fields
	Path     string
	Operator Operator
	Operands []any

	// Group fields
	Connective Connective
	Negated    bool
	Children   []ConditionNode
}

func (*ConditionNode) Kind() Kind { return KindCondition }
func (*ConditionNode) isNode()    {}

// IsGroup reports whether c is a group rather than a leaf.
func (c *ConditionNode) IsGroup() bool {
	return c.Connective != ""
}

// Leaf builds a leaf condition.
func Leaf(path string, op Operator, operands ...any) ConditionNode {
	return ConditionNode{Path: path, Operator: op, Operands: operands}
}

// Group builds a group condition.
func Group(conn Connective, children ...ConditionNode) ConditionNode {
	return ConditionNode{Connective: conn, Children: children}
}

// Not returns a negated copy of group. A leaf, or a group that is already
// negated, is first wrapped in a single-child AND group so that negation
// always applies to a group and never cancels an earlier Not.
func Not(c ConditionNode) ConditionNode {
	if !c.IsGroup() || c.Negated {
		c = Group(And, c)
	}
	c.Negated = true
	return c
}

// KeyConditionNode narrows a Query to a key range. Only the operators for
// which IsKeyConditionOperator is true are accepted by the compiler.
type KeyConditionNode struct {
	Path     string
	Operator Operator
	Operands []any
}

func (*KeyConditionNode) Kind() Kind { return KindKeyCondition }
func (*KeyConditionNode) isNode()    {}

// ConditionList accumulates conditions appended by a builder and folds them
// left to right into a single tree.
type ConditionList struct {
	root *ConditionNode
	// owned is set once root is a group this list created itself and may
	// therefore extend in place.
	owned bool
}

// And appends c joined to what came before with AND.
func (l *ConditionList) And(c ConditionNode) {
	l.add(And, c)
}

// Or appends c joined to what came before with OR.
func (l *ConditionList) Or(c ConditionNode) {
	l.add(Or, c)
}

func (l *ConditionList) add(conn Connective, c ConditionNode) {
	switch {
	case l.root == nil:
		l.root = &c
	case l.owned && l.root.Connective == conn:
		l.root.Children = append(l.root.Children, c)
	default:
		joined := Group(conn, *l.root, c)
		l.root = &joined
		l.owned = true
	}
}

// Empty reports whether nothing has been appended.
func (l *ConditionList) Empty() bool {
	return l.root == nil
}

// Root returns the accumulated tree, or nil when the list is empty.
func (l *ConditionList) Root() *ConditionNode {
	return l.root
}

// Group returns the accumulated conditions as a group node suitable for
// nesting inside another list. A single leaf is wrapped in an AND group.
func (l *ConditionList) Group() (ConditionNode, bool) {
	if l.root == nil {
		return ConditionNode{}, false
	}
	if l.root.IsGroup() {
		return *l.root, true
	}
	return Group(And, *l.root), true
}
