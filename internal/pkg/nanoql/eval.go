package nanoql

import (
	"math"
	"strconv"
	"strings"

	"github.com/coffersTech/topicview/internal/pkg/payload"
)

// Record is anything a query can be evaluated against.
// This decouples nanoql from the engine package.
type Record interface {
	// Lookup resolves a field name or dotted path.
	Lookup(path string) (payload.Value, bool)
	// Range walks the top-level fields.
	Range(fn func(name string, v payload.Value) bool)
}

// Match evaluates the AST node against a Record and returns true if it matches.
func Match(node Node, row Record) bool {
	if node == nil {
		return true // No filter means match all
	}

	switch n := node.(type) {
	case BinaryExpr:
		return evalBinary(n, row)
	case MatchExpr:
		return evalMatch(n, row)
	case NotExpr:
		return !Match(n.Expr, row)
	default:
		return false
	}
}

func evalBinary(expr BinaryExpr, row Record) bool {
	switch expr.Op {
	case "AND":
		return Match(expr.Left, row) && Match(expr.Right, row)
	case "OR":
		return Match(expr.Left, row) || Match(expr.Right, row)
	default:
		return false
	}
}

func evalMatch(expr MatchExpr, row Record) bool {
	// Full-text search (no key specified)
	if expr.Key == "" {
		return matchFullText(expr.Value, row)
	}

	v, ok := row.Lookup(expr.Key)
	if numeric(expr.Op) {
		return ok && compareNumber(v, expr.Op, expr.Value)
	}

	fieldValue := fieldText(v, ok)
	switch expr.Op {
	case OpEqual:
		return matchEqual(fieldValue, expr.Value)
	case OpNotEqual:
		return !matchEqual(fieldValue, expr.Value)
	case OpContains:
		return containsIgnoreCase(fieldValue, expr.Value)
	default:
		return matchEqual(fieldValue, expr.Value)
	}
}

// fieldText is the text a field is compared by. Missing and null fields
// compare as the empty string.
func fieldText(v payload.Value, ok bool) string {
	if !ok || v.Kind() == payload.KindNull {
		return ""
	}
	return v.Text()
}

// compareNumber applies a numeric operator. Anything that is not a finite
// number on either side does not match.
func compareNumber(v payload.Value, op, query string) bool {
	var left float64
	switch t := v.(type) {
	case payload.Number:
		left = t.Float64()
	case payload.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		if err != nil {
			return false
		}
		left = f
	default:
		return false
	}
	right, err := strconv.ParseFloat(query, 64)
	if err != nil || math.IsNaN(left) || math.IsNaN(right) {
		return false
	}

	switch op {
	case OpGreater:
		return left > right
	case OpGreaterEqual:
		return left >= right
	case OpLess:
		return left < right
	case OpLessEqual:
		return left <= right
	default:
		return false
	}
}

// matchEqual performs case-insensitive equality check.
func matchEqual(fieldValue, queryValue string) bool {
	return strings.EqualFold(fieldValue, queryValue)
}

// containsIgnoreCase checks if haystack contains needle (case-insensitive).
func containsIgnoreCase(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchFullText searches across all top-level fields.
func matchFullText(query string, row Record) bool {
	q := strings.ToLower(query)
	found := false
	row.Range(func(_ string, v payload.Value) bool {
		if v.Kind() == payload.KindNull {
			return true
		}
		if strings.Contains(strings.ToLower(v.Text()), q) {
			found = true
			return false
		}
		return true
	})
	return found
}
