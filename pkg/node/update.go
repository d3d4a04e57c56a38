package node

// UpdateAction is the section an update clause belongs to.
type UpdateAction string

// Update actions, in the order their sections must appear.
const (
	ActionSet    UpdateAction = "SET"
	ActionRemove UpdateAction = "REMOVE"
	ActionAdd    UpdateAction = "ADD"
	ActionDelete UpdateAction = "DELETE"
)

// UpdateActions lists the actions in section order.
var UpdateActions = []UpdateAction{ActionSet, ActionRemove, ActionAdd, ActionDelete}

// SetOperand selects how a SET clause computes its new value.
type SetOperand int

// SET value forms.
const (
	SetValue SetOperand = iota
	SetIfNotExists
	SetListAppend
	SetListPrepend
	SetIncrement
	SetDecrement
)

// UpdateClauseNode is one SET, REMOVE, ADD or DELETE instruction.
type UpdateClauseNode struct {
	Action  UpdateAction
	Path    string
	Value   any
	Operand SetOperand
}

func (*UpdateClauseNode) Kind() Kind { return KindUpdateClause }
func (*UpdateClauseNode) isNode()    {}

// Set assigns value to path.
func Set(path string, value any) UpdateClauseNode {
	return UpdateClauseNode{Action: ActionSet, Path: path, Value: value}
}

// SetWith assigns to path using one of the computed SET forms.
func SetWith(path string, operand SetOperand, value any) UpdateClauseNode {
	return UpdateClauseNode{Action: ActionSet, Path: path, Value: value, Operand: operand}
}

// Remove deletes the attribute at path.
func Remove(path string) UpdateClauseNode {
	return UpdateClauseNode{Action: ActionRemove, Path: path}
}

// Add adds a number to path, or elements to the set at path.
func Add(path string, value any) UpdateClauseNode {
	return UpdateClauseNode{Action: ActionAdd, Path: path, Value: value}
}

// Delete removes elements from the set at path.
func Delete(path string, value any) UpdateClauseNode {
	return UpdateClauseNode{Action: ActionDelete, Path: path, Value: value}
}
