package grid

import (
	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/pkg/nanoql"
)

// compile parses a column filter. On number columns a bare term means
// equality rather than substring.
func compile(col engine.ColumnDefinition, expr string) (nanoql.Node, error) {
	node, err := nanoql.ParseScoped(expr, col.Field)
	if err != nil {
		return nil, err
	}
	if col.Filter == engine.FilterNumber {
		node = exactTerms(node, col.Field)
	}
	return node, nil
}

func exactTerms(node nanoql.Node, field string) nanoql.Node {
	switch n := node.(type) {
	case nanoql.BinaryExpr:
		n.Left = exactTerms(n.Left, field)
		n.Right = exactTerms(n.Right, field)
		return n
	case nanoql.NotExpr:
		n.Expr = exactTerms(n.Expr, field)
		return n
	case nanoql.MatchExpr:
		if n.Key == field && n.Op == nanoql.OpContains {
			n.Op = nanoql.OpEqual
		}
		return n
	}
	return node
}
