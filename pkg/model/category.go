package model

import (
	"fmt"
	"strings"
)

// Category names the application subsystem a log entry belongs to.
// Wire values are lower-case.
type Category string

const (
	CategoryApp    Category = "app"
	CategoryConfig Category = "config"
	CategoryDB     Category = "db"
	CategoryFile   Category = "file"
	CategoryUI     Category = "ui"
	CategoryI18N   Category = "i18n"
	CategoryIPC    Category = "ipc"
	CategoryPerf   Category = "perf"
	CategoryTheme  Category = "theme"
	CategoryBackup Category = "backup"
)

// Categories lists all known categories.
var Categories = []Category{
	CategoryApp, CategoryConfig, CategoryDB, CategoryFile, CategoryUI,
	CategoryI18N, CategoryIPC, CategoryPerf, CategoryTheme, CategoryBackup,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryApp, CategoryConfig, CategoryDB, CategoryFile, CategoryUI,
		CategoryI18N, CategoryIPC, CategoryPerf, CategoryTheme, CategoryBackup:
		return true
	}
	return false
}

// ParseCategory converts a category name to a Category. Case-insensitive.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return CategoryApp, fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
