package logql

import (
	"strings"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// Match evaluates the AST node against an entry and returns true if it
// matches. A nil node matches everything.
func Match(node Node, e *model.LogEntry) bool {
	if node == nil {
		return true
	}

	switch n := node.(type) {
	case BinaryExpr:
		return evalBinary(n, e)
	case MatchExpr:
		return evalMatch(n, e)
	case NotExpr:
		return !Match(n.Expr, e)
	default:
		return false
	}
}

func evalBinary(expr BinaryExpr, e *model.LogEntry) bool {
	switch expr.Op {
	case "AND":
		return Match(expr.Left, e) && Match(expr.Right, e)
	case "OR":
		return Match(expr.Left, e) || Match(expr.Right, e)
	default:
		return false
	}
}

func evalMatch(expr MatchExpr, e *model.LogEntry) bool {
	// Full-text search (no field specified)
	if expr.Field == "" {
		return matchFullText(expr.Value, e)
	}

	// Level comparisons are ordinal, not textual.
	if expr.Field == "level" {
		switch expr.Op {
		case "=":
			return e.Level == expr.Level
		case "!=":
			return e.Level != expr.Level
		case ">":
			return e.Level > expr.Level
		case ">=":
			return e.Level >= expr.Level
		case "<":
			return e.Level < expr.Level
		case "<=":
			return e.Level <= expr.Level
		}
	}

	value := fieldValue(expr.Field, e)

	switch expr.Op {
	case "=":
		return strings.EqualFold(value, expr.Value)
	case "!=":
		return !strings.EqualFold(value, expr.Value)
	case "CONTAINS":
		return containsIgnoreCase(value, expr.Value)
	case "MATCHES":
		return expr.Re.MatchString(value)
	default:
		return false
	}
}

// fieldValue returns the string form of a normalized field.
func fieldValue(field string, e *model.LogEntry) string {
	switch field {
	case "level":
		return e.Level.String()
	case "source":
		return string(e.Source)
	case "category":
		return string(e.Module.Category)
	case "message":
		return e.Message
	case "filename":
		return e.Module.Filename
	case "session":
		return e.SessionID
	case "transaction":
		return e.TransactionID
	default:
		return ""
	}
}

// containsIgnoreCase checks if haystack contains needle (case-insensitive).
func containsIgnoreCase(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchFullText searches the message and filename.
func matchFullText(query string, e *model.LogEntry) bool {
	return containsIgnoreCase(e.Message, query) || containsIgnoreCase(e.Module.Filename, query)
}
