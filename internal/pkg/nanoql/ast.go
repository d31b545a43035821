package nanoql

// Node is the interface implemented by all AST nodes.
type Node interface {
	node() // marker method
}

// Comparison operators carried by MatchExpr.Op.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpContains     = "CONTAINS"
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
)

// BinaryExpr represents a binary logical expression (AND, OR).
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}

// MatchExpr compares the value at Key against Value.
// If Key is empty, it represents a full-text search across all fields.
// Key may be a dotted path into nested payload objects.
type MatchExpr struct {
	Key   string
	Value string
	Op    string
}

func (MatchExpr) node() {}

// NotExpr represents a NOT expression that negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}

// numeric reports whether op compares numbers rather than text.
func numeric(op string) bool {
	switch op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return true
	}
	return false
}
