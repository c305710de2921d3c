package logql

import (
	"fmt"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// Expr is a compiled query expression, safe for concurrent use.
type Expr struct {
	root Node
}

// Compile parses src into a reusable expression. Empty or
// whitespace-only input yields a nil expression, which matches every
// entry.
func Compile(src string) (*Expr, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	if node == nil {
		return nil, nil
	}
	return &Expr{root: node}, nil
}

// Match reports whether the entry satisfies the expression. A nil
// expression matches everything.
func (e *Expr) Match(entry *model.LogEntry) bool {
	if e == nil {
		return true
	}
	return Match(e.root, entry)
}
