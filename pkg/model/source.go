package model

import (
	"fmt"
	"strings"
)

// Source identifies the process role that emitted an entry. Each role
// writes to its own active log file so roles sharing a log directory
// never interleave writes on one file.
type Source string

const (
	SourceMain     Source = "MAIN"
	SourceRenderer Source = "RENDERER"
	SourcePreload  Source = "PRELOAD"
	SourceWorker   Source = "WORKER"
)

// Sources lists all process roles.
var Sources = []Source{SourceMain, SourceRenderer, SourcePreload, SourceWorker}

// Valid reports whether s is a known process role.
func (s Source) Valid() bool {
	switch s {
	case SourceMain, SourceRenderer, SourcePreload, SourceWorker:
		return true
	}
	return false
}

// Role returns the lower-case form of the source used in file names.
func (s Source) Role() string {
	return strings.ToLower(string(s))
}

// ParseSource converts a role name to a Source. Case-insensitive.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	if !src.Valid() {
		return SourceMain, fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}
