package dynaquery

import "github.com/pay-theory/dynaquery/pkg/node"

// ConditionGroup collects the conditions of a nested group. It is handed to
// the callbacks of FilterGroup, ConditionGroup and friends.
type ConditionGroup struct {
	list node.ConditionList
}

// Where appends a condition joined with AND
func (g *ConditionGroup) Where(path, op string, operands ...any) *ConditionGroup {
	g.list.And(leaf(path, op, operands))
	return g
}

// OrWhere appends a condition joined with OR
func (g *ConditionGroup) OrWhere(path, op string, operands ...any) *ConditionGroup {
	g.list.Or(leaf(path, op, operands))
	return g
}

// Not appends a negated condition joined with AND
func (g *ConditionGroup) Not(path, op string, operands ...any) *ConditionGroup {
	g.list.And(node.Not(leaf(path, op, operands)))
	return g
}

// OrNot appends a negated condition joined with OR
func (g *ConditionGroup) OrNot(path, op string, operands ...any) *ConditionGroup {
	g.list.Or(node.Not(leaf(path, op, operands)))
	return g
}

// Group appends a nested group joined with AND
func (g *ConditionGroup) Group(fn func(*ConditionGroup)) *ConditionGroup {
	if sub, ok := nested(fn); ok {
		g.list.And(sub)
	}
	return g
}

// OrGroup appends a nested group joined with OR
func (g *ConditionGroup) OrGroup(fn func(*ConditionGroup)) *ConditionGroup {
	if sub, ok := nested(fn); ok {
		g.list.Or(sub)
	}
	return g
}

func leaf(path, op string, operands []any) node.ConditionNode {
	return node.Leaf(path, node.Operator(op), operands...)
}

// nested runs fn against a fresh group. An empty group is dropped.
func nested(fn func(*ConditionGroup)) (node.ConditionNode, bool) {
	if fn == nil {
		return node.ConditionNode{}, false
	}
	g := &ConditionGroup{}
	fn(g)
	return g.list.Group()
}

// filters gives read builders their Filter methods. B is the builder type
// returned for chaining.
type filters[B any] struct {
	self B
	list node.ConditionList
}

// Filter appends a filter condition joined with AND
func (f *filters[B]) Filter(path, op string, operands ...any) B {
	f.list.And(leaf(path, op, operands))
	return f.self
}

// OrFilter appends a filter condition joined with OR
func (f *filters[B]) OrFilter(path, op string, operands ...any) B {
	f.list.Or(leaf(path, op, operands))
	return f.self
}

// FilterNot appends a negated filter condition joined with AND
func (f *filters[B]) FilterNot(path, op string, operands ...any) B {
	f.list.And(node.Not(leaf(path, op, operands)))
	return f.self
}

// OrFilterNot appends a negated filter condition joined with OR
func (f *filters[B]) OrFilterNot(path, op string, operands ...any) B {
	f.list.Or(node.Not(leaf(path, op, operands)))
	return f.self
}

// FilterGroup appends a parenthesized group of filters joined with AND
func (f *filters[B]) FilterGroup(fn func(*ConditionGroup)) B {
	if sub, ok := nested(fn); ok {
		f.list.And(sub)
	}
	return f.self
}

// OrFilterGroup appends a parenthesized group of filters joined with OR
func (f *filters[B]) OrFilterGroup(fn func(*ConditionGroup)) B {
	if sub, ok := nested(fn); ok {
		f.list.Or(sub)
	}
	return f.self
}

// conditions gives write builders their Condition methods.
type conditions[B any] struct {
	self B
	list node.ConditionList
}

// Condition appends a write condition joined with AND
func (c *conditions[B]) Condition(path, op string, operands ...any) B {
	c.list.And(leaf(path, op, operands))
	return c.self
}

// OrCondition appends a write condition joined with OR
func (c *conditions[B]) OrCondition(path, op string, operands ...any) B {
	c.list.Or(leaf(path, op, operands))
	return c.self
}

// ConditionNot appends a negated write condition joined with AND
func (c *conditions[B]) ConditionNot(path, op string, operands ...any) B {
	c.list.And(node.Not(leaf(path, op, operands)))
	return c.self
}

// OrConditionNot appends a negated write condition joined with OR
func (c *conditions[B]) OrConditionNot(path, op string, operands ...any) B {
	c.list.Or(node.Not(leaf(path, op, operands)))
	return c.self
}

// ConditionGroup appends a parenthesized group of conditions joined with AND
func (c *conditions[B]) ConditionGroup(fn func(*ConditionGroup)) B {
	if sub, ok := nested(fn); ok {
		c.list.And(sub)
	}
	return c.self
}

// OrConditionGroup appends a parenthesized group of conditions joined with OR
func (c *conditions[B]) OrConditionGroup(fn func(*ConditionGroup)) B {
	if sub, ok := nested(fn); ok {
		c.list.Or(sub)
	}
	return c.self
}

// IfNotExists guards a write so it only applies when path is absent.
func (c *conditions[B]) IfNotExists(path string) B {
	c.list.And(node.Leaf(path, node.OpAttributeNotExists))
	return c.self
}

// IfExists guards a write so it only applies when path is present.
func (c *conditions[B]) IfExists(path string) B {
	c.list.And(node.Leaf(path, node.OpAttributeExists))
	return c.self
}
