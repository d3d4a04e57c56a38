package node

// MaxTransactItems is the largest number of items one transaction may carry.
const MaxTransactItems = 100

// TransactItemNode carries exactly one write. The compiler rejects items
// with zero or several writes populated.
type TransactItemNode struct {
	Put    *PutItemNode
	Delete *DeleteItemNode
	Update *UpdateItemNode
}

func (*TransactItemNode) Kind() Kind { return KindTransactItem }
func (*TransactItemNode) isNode()    {}

// Populated returns how many of Put, Delete and Update are set.
func (t *TransactItemNode) Populated() int {
	n := 0
	if t.Put != nil {
		n++
	}
	if t.Delete != nil {
		n++
	}
	if t.Update != nil {
		n++
	}
	return n
}

// TransactionNode is an ordered list of writes applied all-or-nothing in
// list order.
type TransactionNode struct {
	Items              []TransactItemNode
	ClientRequestToken string
}

func (*TransactionNode) Kind() Kind { return KindTransaction }
func (*TransactionNode) isNode()    {}
