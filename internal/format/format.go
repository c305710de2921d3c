package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// ANSI escape codes for colorized console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Canonical renders the entry as a single-line JSON document, the
// on-disk source of truth. The same entry always produces the same
// string; field order is fixed by the struct definition.
func Canonical(e *model.LogEntry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}
	return string(data), nil
}

// Legacy renders the entry in the older fixed-pattern textual form:
//
//	[timestamp] [SOURCE] LEVEL [TYPE:pid] (category:filename) - message
//
// The analyzer keeps this form parseable for files written before the
// canonical format.
func Legacy(e *model.LogEntry) string {
	return fmt.Sprintf("[%s] [%s] %s [%s:%d] (%s:%s) - %s",
		e.Timestamp, e.Source, e.Level,
		e.Process.Type, e.Process.PID,
		e.Module.Category, e.Module.Filename,
		e.Message,
	)
}

// ConsoleOptions control the console rendering of an entry.
type ConsoleOptions struct {
	// Colors applies ANSI color codes keyed by level. Only set this
	// when the output is an interactive terminal.
	Colors bool

	// IncludeStack appends the captured error message and stack
	// when the entry carries one.
	IncludeStack bool
}

// DefaultConsoleOptions returns the stock options for the given level:
// no colors, stack included from ERROR upward.
func DefaultConsoleOptions(level model.Level) ConsoleOptions {
	return ConsoleOptions{IncludeStack: level >= model.LevelError}
}

// Console renders a human-readable line in the legacy shape, with
// optional color and error details. Structured data is appended as
// compact JSON.
func Console(e *model.LogEntry, opts ConsoleOptions) string {
	var b strings.Builder

	if opts.Colors {
		lc := levelColor(e.Level)
		fmt.Fprintf(&b, "%s[%s]%s [%s] %s%s%s [%s:%d] (%s:%s) - %s",
			colorGray, e.Timestamp, colorReset,
			e.Source,
			lc, e.Level, colorReset,
			e.Process.Type, e.Process.PID,
			e.Module.Category, e.Module.Filename,
			e.Message,
		)
	} else {
		b.WriteString(Legacy(e))
	}

	if len(e.Data) > 0 {
		if data, err := json.Marshal(e.Data); err == nil {
			b.WriteByte(' ')
			b.Write(data)
		}
	}

	if opts.IncludeStack && e.Error != nil {
		b.WriteString("\n  error: ")
		b.WriteString(e.Error.Message)
		if e.Error.Stack != "" {
			b.WriteByte('\n')
			b.WriteString(e.Error.Stack)
		}
	}

	return b.String()
}

func levelColor(l model.Level) string {
	switch l {
	case model.LevelError, model.LevelFatal:
		return colorBold + colorRed
	case model.LevelWarn:
		return colorYellow
	case model.LevelTrace, model.LevelDebug:
		return colorGray
	default:
		return colorCyan
	}
}
