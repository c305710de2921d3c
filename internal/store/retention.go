package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// archiveInfo describes one rotated file under archives/.
type archiveInfo struct {
	name string
	path string
	time time.Time
}

// listArchives returns the directory's archives sorted oldest first.
// Each archive's time comes from the stamp embedded in its name, with
// the file modification time as fallback for foreign names.
func listArchives(dir string) ([]archiveInfo, error) {
	entries, err := os.ReadDir(filepath.Join(dir, archiveDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archives: %w", err)
	}

	var out []archiveInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".log") && !strings.HasSuffix(name, ".log.gz") {
			continue
		}
		a := archiveInfo{name: name, path: filepath.Join(dir, archiveDirName, name)}
		if ts, ok := archiveStamp(name); ok {
			a.time = ts
		} else if info, err := e.Info(); err == nil {
			a.time = info.ModTime()
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].time.Equal(out[j].time) {
			return out[i].time.Before(out[j].time)
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

// archiveStamp extracts the rotation time from an archive name of the
// form <role>-<stamp>[-<seq>].log[.gz].
func archiveStamp(name string) (time.Time, bool) {
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".log")
	parts := strings.SplitN(base, "-", 3)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	ts, err := time.Parse(archiveStampLayout, parts[1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// CleanupDir enforces both retention limits on dir's archives: files
// older than retentionDays are removed first, then the oldest files
// beyond maxFiles. Whichever limit is stricter wins. A non-positive
// limit disables that check. Returns the number of files removed;
// removal failures are reported once and do not stop the sweep.
func CleanupDir(dir string, retentionDays, maxFiles int) (int, error) {
	archives, err := listArchives(dir)
	if err != nil {
		return 0, err
	}

	var (
		removed  int
		keep     []archiveInfo
		firstErr error
	)

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, a := range archives {
		if retentionDays > 0 && a.time.Before(cutoff) {
			if err := os.Remove(a.path); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("remove %s: %w", a.name, err)
				}
				keep = append(keep, a)
				continue
			}
			removed++
			continue
		}
		keep = append(keep, a)
	}

	if maxFiles > 0 && len(keep) > maxFiles {
		for _, a := range keep[:len(keep)-maxFiles] {
			if err := os.Remove(a.path); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("remove %s: %w", a.name, err)
				}
				continue
			}
			removed++
		}
	}

	return removed, firstErr
}

// Cleanup runs the retention sweep over the store's directory. The
// sweep covers archives written by any role sharing the directory.
func (s *Store) Cleanup() (int, error) {
	removed, err := CleanupDir(s.dir, s.retentionDays, s.maxFiles)
	if err != nil {
		s.fail("cleanup", err)
	}
	return removed, err
}

// StartRetentionLoop runs Cleanup every interval until the store is
// destroyed.
func (s *Store) StartRetentionLoop(interval time.Duration) {
	s.tickWg.Add(1)
	go func() {
		defer s.tickWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.done:
				return
			}
		}
	}()
}
