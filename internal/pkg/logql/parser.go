package logql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// fields maps accepted field names (and their short aliases) to the
// normalized name used by the evaluator.
var fields = map[string]string{
	"level":       "level",
	"lvl":         "level",
	"source":      "source",
	"src":         "source",
	"category":    "category",
	"cat":         "category",
	"message":     "message",
	"msg":         "message",
	"filename":    "filename",
	"file":        "filename",
	"session":     "session",
	"transaction": "transaction",
}

// Parser parses query expressions into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
}

// Parse parses the input string and returns the AST root node. Empty
// input yields a nil node, which matches everything. Unlike a lenient
// search box, any malformed input is a returned error: trailing
// tokens, unknown fields, ordering operators on non-level fields, and
// invalid regex patterns all fail the parse.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := &Parser{lexer: NewLexer(input)}
	p.advance()
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %q after end of expression", p.current.Value)
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

// parseAnd handles AND expressions.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}

	return left, nil
}

// parseNot handles NOT expressions.
func (p *Parser) parseNot() (Node, error) {
	if p.current.Type == TokenNot {
		p.advance()
		expr, err := p.parseNot() // NOT is right-associative
		if err != nil {
			return nil, err
		}
		return NotExpr{Expr: expr}, nil
	}
	return p.parsePrimary()
}

// parsePrimary handles primary expressions: (expr), field OP value,
// and bare "full text" terms.
func (p *Parser) parsePrimary() (Node, error) {
	switch p.current.Type {
	case TokenLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, fmt.Errorf("expected ')' but got %q", p.current.Value)
		}
		p.advance()
		return expr, nil

	case TokenString:
		// Full-text search: "some text"
		value := p.current.Value
		p.advance()
		return MatchExpr{Op: "CONTAINS", Value: value}, nil

	case TokenIdent:
		name := p.current.Value
		p.advance()

		op, ok := comparisonOp(p.current.Type)
		if !ok {
			// Bare word: treat as full-text search
			return MatchExpr{Op: "CONTAINS", Value: name}, nil
		}
		p.advance()
		return p.parseComparison(name, op)

	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected %q", p.current.Value)
	}
}

// comparisonOp maps an operator token to its AST op string. TokenColon
// is accepted as shorthand for "=".
func comparisonOp(t TokenType) (string, bool) {
	switch t {
	case TokenColon, TokenEq:
		return "=", true
	case TokenNeq:
		return "!=", true
	case TokenGt:
		return ">", true
	case TokenGte:
		return ">=", true
	case TokenLt:
		return "<", true
	case TokenLte:
		return "<=", true
	case TokenContains:
		return "CONTAINS", true
	case TokenMatches:
		return "MATCHES", true
	}
	return "", false
}

// parseComparison consumes the value of a comparison and validates the
// field/operator/value combination.
func (p *Parser) parseComparison(name, op string) (Node, error) {
	var value string
	switch p.current.Type {
	case TokenString, TokenIdent:
		value = p.current.Value
		p.advance()
	default:
		return nil, fmt.Errorf("expected value after %q %s", name, op)
	}

	field, ok := fields[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name)
	}

	expr := MatchExpr{Field: field, Op: op, Value: value}

	switch op {
	case ">", ">=", "<", "<=":
		if field != "level" {
			return nil, fmt.Errorf("operator %s only applies to level, not %q", op, field)
		}
		lvl, err := parseLevelValue(value)
		if err != nil {
			return nil, err
		}
		expr.Level = lvl
	case "=", "!=":
		if field == "level" {
			lvl, err := parseLevelValue(value)
			if err != nil {
				return nil, err
			}
			expr.Level = lvl
		}
	case "MATCHES":
		re, err := regexp.Compile(value)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", value, err)
		}
		expr.Re = re
	}

	return expr, nil
}

// parseLevelValue accepts a level name or its ordinal.
func parseLevelValue(s string) (model.Level, error) {
	if lvl, err := model.ParseLevel(s); err == nil {
		return lvl, nil
	}
	if n, err := strconv.Atoi(s); err == nil && model.Level(n).Valid() {
		return model.Level(n), nil
	}
	return 0, fmt.Errorf("invalid level %q", s)
}
