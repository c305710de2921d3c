package model

import (
	"fmt"
	"time"
)

// Config controls a recorder instance: which sinks are enabled, where
// files live, and the rotation/retention/buffering policy for the file
// sink.
type Config struct {
	// Level is the minimum severity recorded. Calls below it are
	// dropped before any formatting work.
	Level Level `mapstructure:"level"`

	// Console enables the console sink.
	Console bool `mapstructure:"console"`

	// File enables the file sink.
	File bool `mapstructure:"file"`

	// Dir is the directory holding the active files and the
	// archives/ subdirectory.
	Dir string `mapstructure:"dir"`

	// MaxFileSizeMB rotates the active file once it exceeds this
	// size in megabytes.
	MaxFileSizeMB int `mapstructure:"max-file-size-mb"`

	// MaxFiles caps how many archived files are retained.
	MaxFiles int `mapstructure:"max-files"`

	// RetentionDays removes archives older than this many days.
	RetentionDays int `mapstructure:"retention-days"`

	// Compress gzips archives after rotation.
	Compress bool `mapstructure:"compress"`

	// BufferSize is the number of buffered lines that forces an
	// inline flush.
	BufferSize int `mapstructure:"buffer-size"`

	// FlushInterval is the periodic flush cadence for a partially
	// filled buffer.
	FlushInterval time.Duration `mapstructure:"flush-interval"`

	// Source tags every entry with the emitting process kind.
	Source Source `mapstructure:"source"`
}

// DefaultConfig returns the stock configuration: INFO level, both sinks
// on, 10MB rotation with compressed archives, 7 day / 10 file
// retention, and a 100-line buffer flushed every 5 seconds.
func DefaultConfig() Config {
	return Config{
		Level:         LevelInfo,
		Console:       true,
		File:          true,
		Dir:           "logs",
		MaxFileSizeMB: 10,
		MaxFiles:      10,
		RetentionDays: 7,
		Compress:      true,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
		Source:        SourceMain,
	}
}

// Validate reports the first invalid field. A Config that fails
// validation must not be used to build a recorder.
func (c Config) Validate() error {
	if !c.Level.Valid() {
		return fmt.Errorf("invalid level %d", int(c.Level))
	}
	if !c.Source.Valid() {
		return fmt.Errorf("invalid source %q", string(c.Source))
	}
	if c.File {
		if c.Dir == "" {
			return fmt.Errorf("file sink enabled with empty dir")
		}
		if c.MaxFileSizeMB <= 0 {
			return fmt.Errorf("max file size must be positive, got %d", c.MaxFileSizeMB)
		}
		if c.MaxFiles <= 0 {
			return fmt.Errorf("max files must be positive, got %d", c.MaxFiles)
		}
		if c.RetentionDays <= 0 {
			return fmt.Errorf("retention days must be positive, got %d", c.RetentionDays)
		}
		if c.BufferSize <= 0 {
			return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
		}
		if c.FlushInterval <= 0 {
			return fmt.Errorf("flush interval must be positive, got %v", c.FlushInterval)
		}
	}
	return nil
}
