package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// statsFileName is the sidecar holding cumulative counters across
// restarts.
const statsFileName = ".quicklog.stats.json"

// loadStats reads the sidecar. A missing or corrupt file yields
// zeroed stats rather than an error.
func loadStats(dir string) model.LogStats {
	stats := model.NewLogStats()

	data, err := os.ReadFile(filepath.Join(dir, statsFileName))
	if err != nil {
		return stats
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return model.NewLogStats()
	}
	if stats.ByLevel == nil {
		stats.ByLevel = make(map[string]int64)
	}
	if stats.ByCategory == nil {
		stats.ByCategory = make(map[string]int64)
	}
	return stats
}

// persistStats writes the counters to the sidecar via a temp file and
// atomic rename. The caller must hold flushMu.
func (s *Store) persistStats() error {
	s.statsMu.Lock()
	snapshot := s.stats.Clone()
	s.statsMu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	path := filepath.Join(s.dir, statsFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename stats: %w", err)
	}
	return nil
}

// Stats returns a copy of the cumulative write counters.
func (s *Store) Stats() model.LogStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats.Clone()
}

// FileStats reports the on-disk footprint of the store's directory.
func (s *Store) FileStats() (model.FileStats, error) {
	return DirStats(s.dir)
}

// DirStats aggregates size and counts over a log directory: active
// role files at the top level plus everything under archives/.
func DirStats(dir string) (model.FileStats, error) {
	var fs model.FileStats

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return fs, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		fs.ActiveFiles = append(fs.ActiveFiles, e.Name())
		fs.FileCount++
		fs.TotalSizeBytes += info.Size()
	}

	archives, err := listArchives(dir)
	if err != nil {
		return fs, err
	}
	for _, a := range archives {
		info, err := os.Stat(a.path)
		if err != nil {
			continue
		}
		fs.FileCount++
		fs.ArchivedFiles++
		if strings.HasSuffix(a.name, ".gz") {
			fs.CompressedFiles++
		}
		fs.TotalSizeBytes += info.Size()
	}

	return fs, nil
}
