package logql

import (
	"regexp"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	node() // marker method
}

// BinaryExpr represents a binary logical expression (AND, OR).
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}

// MatchExpr represents a field-operator-value comparison.
// If Field is empty, it represents a full-text search over the entry's
// message and filename.
type MatchExpr struct {
	Field string // normalized field name; empty for full-text
	Op    string // "=", "!=", ">", ">=", "<", "<=", "CONTAINS", "MATCHES"
	Value string

	// Level is the resolved value when Field is "level" and Op
	// compares levels; filled in at parse time.
	Level model.Level

	// Re is the compiled pattern when Op is "MATCHES"; filled in at
	// parse time so an invalid pattern fails the parse, not the scan.
	Re *regexp.Regexp
}

func (MatchExpr) node() {}

// NotExpr represents a NOT expression that negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}
