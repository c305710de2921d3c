package model

// LogStats accumulates per-recorder write counters. Counters survive
// process restarts through the stats sidecar file in the log directory.
type LogStats struct {
	TotalLogs    int64            `json:"totalLogs"`
	ByLevel      map[string]int64 `json:"byLevel"`
	ByCategory   map[string]int64 `json:"byCategory"`
	ErrorCount   int64            `json:"errorCount"`
	WarningCount int64            `json:"warningCount"`
	LastUpdated  string           `json:"lastUpdated"`
}

// NewLogStats returns zeroed stats with allocated maps.
func NewLogStats() LogStats {
	return LogStats{
		ByLevel:    make(map[string]int64),
		ByCategory: make(map[string]int64),
	}
}

// Count tallies one written entry.
func (s *LogStats) Count(level Level, category Category, now string) {
	s.TotalLogs++
	s.ByLevel[level.String()]++
	s.ByCategory[string(category)]++
	switch {
	case level >= LevelError:
		s.ErrorCount++
	case level == LevelWarn:
		s.WarningCount++
	}
	s.LastUpdated = now
}

// Clone returns a deep copy safe to hand out while the original keeps
// being updated under the owner's lock.
func (s *LogStats) Clone() LogStats {
	out := *s
	out.ByLevel = make(map[string]int64, len(s.ByLevel))
	for k, v := range s.ByLevel {
		out.ByLevel[k] = v
	}
	out.ByCategory = make(map[string]int64, len(s.ByCategory))
	for k, v := range s.ByCategory {
		out.ByCategory[k] = v
	}
	return out
}

// FileStats describes the on-disk footprint of a log directory.
type FileStats struct {
	TotalSizeBytes  int64    `json:"totalSizeBytes"`
	FileCount       int      `json:"fileCount"`
	ActiveFiles     []string `json:"activeFiles"`
	ArchivedFiles   int      `json:"archivedFiles"`
	CompressedFiles int      `json:"compressedFiles"`
}
