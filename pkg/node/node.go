// Package node defines the intermediate representation that the fluent
// builders populate and the compiler consumes.
//
// Every node is appended once and then only read. A node tree belongs to the
// builder that created it until it is handed to the compiler, which never
// mutates it.
package node

// Kind tags each node variant.
type Kind string

// Node kinds.
const (
	KindGetItem      Kind = "GetItemNode"
	KindQuery        Kind = "QueryNode"
	KindScan         Kind = "ScanNode"
	KindPutItem      Kind = "PutItemNode"
	KindDeleteItem   Kind = "DeleteItemNode"
	KindUpdateItem   Kind = "UpdateItemNode"
	KindCondition    Kind = "ConditionNode"
	KindKeyCondition Kind = "KeyConditionNode"
	KindUpdateClause Kind = "UpdateClauseNode"
	KindTransactItem Kind = "TransactItemNode"
	KindTransaction  Kind = "TransactionNode"
)

// Node is the closed set of IR variants. Only types in this package
// implement it.
type Node interface {
	Kind() Kind
	isNode()
}

// ReturnValue selects which item attributes a write returns.
type ReturnValue string

// Return value options accepted by write operations.
const (
	ReturnNone       ReturnValue = "NONE"
	ReturnAllOld     ReturnValue = "ALL_OLD"
	ReturnUpdatedOld ReturnValue = "UPDATED_OLD"
	ReturnAllNew     ReturnValue = "ALL_NEW"
	ReturnUpdatedNew ReturnValue = "UPDATED_NEW"
)

// GetItemNode reads one item by key.
type GetItemNode struct {
	Table          string
	Key            map[string]any
	Attributes     []string
	ConsistentRead *bool
}

// QueryNode reads the items under one partition key, optionally narrowed by
// a sort key range and filtered afterwards.
type QueryNode struct {
	Table             string
	Index             string
	KeyConditions     []KeyConditionNode
	Filter            *ConditionNode
	Attributes        []string
	Limit             *int32
	ScanIndexForward  *bool
	ConsistentRead    *bool
	ExclusiveStartKey map[string]any
}

// ScanNode reads every item of a table or index.
type ScanNode struct {
	Table             string
	Index             string
	Filter            *ConditionNode
	Attributes        []string
	Limit             *int32
	ConsistentRead    *bool
	Segment           *int32
	TotalSegments     *int32
	ExclusiveStartKey map[string]any
}

// PutItemNode writes a full item, optionally guarded by a condition.
type PutItemNode struct {
	Table        string
	Item         map[string]any
	Condition    *ConditionNode
	ReturnValues ReturnValue
}

// DeleteItemNode removes one item by key.
type DeleteItemNode struct {
	Table        string
	Key          map[string]any
	Condition    *ConditionNode
	ReturnValues ReturnValue
}

// UpdateItemNode modifies attributes of one item in place.
type UpdateItemNode struct {
	Table        string
	Key          map[string]any
	Clauses      []UpdateClauseNode
	Condition    *ConditionNode
	ReturnValues ReturnValue
}

func (*GetItemNode) Kind() Kind    { return KindGetItem }
func (*QueryNode) Kind() Kind      { return KindQuery }
func (*ScanNode) Kind() Kind       { return KindScan }
func (*PutItemNode) Kind() Kind    { return KindPutItem }
func (*DeleteItemNode) Kind() Kind { return KindDeleteItem }
func (*UpdateItemNode) Kind() Kind { return KindUpdateItem }

func (*GetItemNode) isNode()    {}
func (*QueryNode) isNode()      {}
func (*ScanNode) isNode()       {}
func (*PutItemNode) isNode()    {}
func (*DeleteItemNode) isNode() {}
func (*UpdateItemNode) isNode() {}
