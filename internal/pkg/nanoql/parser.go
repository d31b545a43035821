package nanoql

import (
	"fmt"
)

// Parser parses NanoQL queries into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
	// scope is the field key-less terms are bound to. Empty means full text.
	scope string
}

// Parse parses the input string and returns the AST root node.
// An empty query parses to nil, which matches every record.
func Parse(input string) (Node, error) {
	return ParseScoped(input, "")
}

// ParseScoped parses a query whose key-less terms apply to field instead of
// the whole record. This is the column filter form: `alice`, `!=bob`, `>10`,
// `>=10 AND <20`. Explicit key:value terms keep their own key.
func ParseScoped(input, field string) (Node, error) {
	if input == "" {
		return nil, nil
	}
	p := &Parser{lexer: NewLexer(input), scope: field}
	p.advance()
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected token: %v", p.current)
	}
	return node, nil
}

func (p *Parser) advance() {
	p.current = p.lexer.NextToken()
}

// parseOr handles OR expressions (lowest precedence).
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}

	return left, nil
}

// parseAnd handles AND expressions. Adjacent terms are joined with an
// implicit AND.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenAnd || p.startsTerm() {
		if p.current.Type == TokenAnd {
			p.advance()
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = joinAnd(left, right)
	}

	return left, nil
}

func joinAnd(left, right Node) Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return BinaryExpr{Op: "AND", Left: left, Right: right}
}

func (p *Parser) startsTerm() bool {
	switch p.current.Type {
	case TokenIdent, TokenString, TokenLParen, TokenNot,
		TokenColon, TokenNeq, TokenGt, TokenGte, TokenLt, TokenLte:
		return true
	}
	return false
}

// parseNot handles NOT expressions.
func (p *Parser) parseNot() (Node, error) {
	if p.current.Type == TokenNot {
		p.advance()
		expr, err := p.parseNot() // NOT is right-associative
		if err != nil {
			return nil, err
		}
		if expr == nil {
			return nil, fmt.Errorf("expected expression after NOT")
		}
		return NotExpr{Expr: expr}, nil
	}
	return p.parsePrimary()
}

// parsePrimary handles primary expressions: (expr), key:value, key>n, "string",
// and in a scoped query the key-less forms :value, !=value, >n.
func (p *Parser) parsePrimary() (Node, error) {
	switch p.current.Type {
	case TokenLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, fmt.Errorf("expected ')' but got %v", p.current)
		}
		p.advance()
		return expr, nil

	case TokenString:
		// Full-text search: "some text"
		value := p.current.Value
		p.advance()
		return MatchExpr{Key: p.scope, Value: value, Op: OpContains}, nil

	case TokenIdent:
		key := p.current.Value
		p.advance()

		if op, ok := p.comparison(); ok {
			p.advance()
			return p.parseValue(key, op)
		}

		// Bare identifier: treat as full-text search
		return MatchExpr{Key: p.scope, Value: key, Op: OpContains}, nil

	case TokenColon, TokenNeq, TokenGt, TokenGte, TokenLt, TokenLte:
		if p.scope == "" {
			return nil, fmt.Errorf("operator %q needs a field", p.current.Value)
		}
		op, _ := p.comparison()
		p.advance()
		return p.parseValue(p.scope, op)

	case TokenEOF:
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected token: %v", p.current)
	}
}

// comparison maps the current token to a MatchExpr operator.
func (p *Parser) comparison() (string, bool) {
	switch p.current.Type {
	case TokenColon:
		return OpEqual, true
	case TokenNeq:
		return OpNotEqual, true
	case TokenGt:
		return OpGreater, true
	case TokenGte:
		return OpGreaterEqual, true
	case TokenLt:
		return OpLess, true
	case TokenLte:
		return OpLessEqual, true
	}
	return "", false
}

// parseValue parses the value part after key: or key!=
func (p *Parser) parseValue(key, op string) (Node, error) {
	var value string

	switch p.current.Type {
	case TokenString:
		value = p.current.Value
		p.advance()
	case TokenIdent:
		value = p.current.Value
		p.advance()
	default:
		return nil, fmt.Errorf("expected value after '%s%s' but got %v", key, op, p.current)
	}

	return MatchExpr{Key: key, Value: value, Op: op}, nil
}
