package model

import "time"

// TimestampLayout is the fixed-width UTC timestamp format carried by
// every entry. Zero-padded with millisecond precision, so lexicographic
// order on formatted timestamps equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in the canonical entry timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ProcessInfo identifies the OS process that emitted an entry.
type ProcessInfo struct {
	Type Source `json:"type"`
	PID  int    `json:"pid"`
	TID  *int   `json:"tid,omitempty"`
}

// ModuleInfo names the application subsystem and call site of an entry.
type ModuleInfo struct {
	Category Category `json:"category"`
	Filename string   `json:"filename"`
}

// ErrorInfo carries a fault captured at the call site.
type ErrorInfo struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// LogEntry is one structured record of a single log call. Entries are
// assembled once by the recorder, serialized, and never mutated; the
// analyzer reconstructs fresh values when reading them back from disk.
type LogEntry struct {
	Timestamp     string         `json:"timestamp"`
	Source        Source         `json:"source"`
	Level         Level          `json:"level"`
	Process       ProcessInfo    `json:"process"`
	Module        ModuleInfo     `json:"module"`
	Message       string         `json:"message"`
	TransactionID string         `json:"transactionId"`
	SessionID     string         `json:"sessionId"`
	Data          map[string]any `json:"data,omitempty"`
	Error         *ErrorInfo     `json:"error,omitempty"`
}
