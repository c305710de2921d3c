package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AstraSolis/quicklog/pkg/model"
)

const (
	archiveDirName = "archives"

	// archiveStampLayout names rotated files. Fixed-width UTC, so
	// archive names sort chronologically.
	archiveStampLayout = "20060102T150405.000"
)

// Store state while the flush/rotate sequence runs.
const (
	stateAccumulating int32 = iota
	stateFlushing
	stateRotating
)

// ErrorFunc receives internal store faults. Implementations must not
// block; they may be called from the flush path.
type ErrorFunc func(op string, err error)

// Store persists formatted lines for one process role in one log
// directory. Writes land in an in-memory buffer and are flushed when
// the buffer fills or on a timer; flushed files are rotated by size
// into archives/, optionally gzip-compressed, and trimmed by the
// retention policy.
type Store struct {
	dir           string
	role          string
	maxFileSize   int64
	maxFiles      int
	retentionDays int
	compress      bool
	bufferSize    int
	flushInterval time.Duration
	onError       ErrorFunc

	bufMu   sync.Mutex
	pending []string

	// flushMu serializes the flush -> rotate -> reopen sequence.
	// Writers only contend on bufMu.
	flushMu sync.Mutex
	file    *os.File
	size    int64

	state atomic.Int32

	statsMu sync.Mutex
	stats   model.LogStats

	done       chan struct{}
	tickWg     sync.WaitGroup
	compressWg sync.WaitGroup
	stopOnce   sync.Once
	closed     atomic.Bool
}

// New opens the active file for cfg's role, loads the stats sidecar,
// and starts the periodic flush goroutine.
func New(cfg model.Config, onError ErrorFunc) (*Store, error) {
	if !cfg.Source.Valid() {
		return nil, fmt.Errorf("invalid source %q", string(cfg.Source))
	}
	if cfg.Dir == "" || cfg.MaxFileSizeMB <= 0 || cfg.BufferSize <= 0 || cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("invalid store configuration: dir=%q maxFileSizeMB=%d bufferSize=%d flushInterval=%v",
			cfg.Dir, cfg.MaxFileSizeMB, cfg.BufferSize, cfg.FlushInterval)
	}

	if err := os.MkdirAll(filepath.Join(cfg.Dir, archiveDirName), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	s := &Store{
		dir:           cfg.Dir,
		role:          cfg.Source.Role(),
		maxFileSize:   int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		maxFiles:      cfg.MaxFiles,
		retentionDays: cfg.RetentionDays,
		compress:      cfg.Compress,
		bufferSize:    cfg.BufferSize,
		flushInterval: cfg.FlushInterval,
		onError:       onError,
		pending:       make([]string, 0, cfg.BufferSize),
		stats:         loadStats(cfg.Dir),
		done:          make(chan struct{}),
	}

	if err := s.openActive(); err != nil {
		return nil, err
	}

	s.tickWg.Add(1)
	go s.tickLoop()

	return s, nil
}

// ActivePath returns the path of the role's active log file.
func (s *Store) ActivePath() string {
	return filepath.Join(s.dir, s.role+".log")
}

// State reports what the store is currently doing: "accumulating",
// "flushing", or "rotating".
func (s *Store) State() string {
	switch s.state.Load() {
	case stateFlushing:
		return "flushing"
	case stateRotating:
		return "rotating"
	default:
		return "accumulating"
	}
}

// Write buffers one formatted line and tallies the entry in the
// cumulative counters. It never blocks on disk I/O unless the buffer
// just reached capacity, in which case the flush runs inline as
// backpressure.
func (s *Store) Write(e *model.LogEntry, line string) {
	if s.closed.Load() {
		return
	}

	s.statsMu.Lock()
	s.stats.Count(e.Level, e.Module.Category, model.FormatTimestamp(time.Now()))
	s.statsMu.Unlock()

	s.bufMu.Lock()
	s.pending = append(s.pending, line)
	var batch []string
	if len(s.pending) >= s.bufferSize {
		batch = s.pending
		s.pending = make([]string, 0, s.bufferSize)
	}
	s.bufMu.Unlock()

	if batch != nil {
		s.flushBatch(batch)
	}
}

// Flush drains the buffer to the active file synchronously. Errors are
// also reported through the store's error callback.
func (s *Store) Flush() error {
	s.bufMu.Lock()
	if len(s.pending) == 0 {
		s.bufMu.Unlock()
		return nil
	}
	batch := s.pending
	s.pending = make([]string, 0, s.bufferSize)
	s.bufMu.Unlock()

	return s.flushBatch(batch)
}

// flushBatch writes one detached batch, rotating afterwards if the
// active file outgrew the limit, and persists the stats sidecar.
func (s *Store) flushBatch(batch []string) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if s.file == nil {
		if s.closed.Load() {
			err := fmt.Errorf("store is closed, dropping %d lines", len(batch))
			s.fail("write", err)
			return err
		}
		// A failed reopen after rotation left no handle; try again
		// before giving up on the batch.
		if err := s.openActive(); err != nil {
			err = fmt.Errorf("reopen active file, dropping %d lines: %w", len(batch), err)
			s.fail("write", err)
			return err
		}
	}

	s.state.Store(stateFlushing)
	defer s.state.Store(stateAccumulating)

	if err := s.writeBatch(batch); err != nil {
		s.fail("write", err)
		return err
	}

	if s.size > s.maxFileSize {
		s.state.Store(stateRotating)
		if err := s.rotate(); err != nil {
			s.fail("rotate", err)
		}
	}

	if err := s.persistStats(); err != nil {
		s.fail("stats", err)
	}
	return nil
}

// writeBatch appends the batch to the active file. A failed write is
// resumed once from where it stopped; a second failure drops the
// batch. The caller must hold flushMu.
func (s *Store) writeBatch(batch []string) error {
	data := []byte(strings.Join(batch, "\n") + "\n")

	n, err := writeAll(s.file, data)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("write batch of %d lines (retried): %w", len(batch), err)
	}
	return nil
}

// writeAll writes data, retrying the unwritten remainder once after a
// partial failure so no prefix lands on disk twice. Returns the total
// bytes written.
func writeAll(w io.Writer, data []byte) (int, error) {
	n, err := w.Write(data)
	if err == nil {
		return n, nil
	}
	m, err2 := w.Write(data[n:])
	return n + m, err2
}

// rotate closes the active file, renames it into archives/, and opens
// a fresh one. If the rename fails the active file is reopened in
// place and compression is skipped, so no open-file data is lost. The
// caller must hold flushMu.
func (s *Store) rotate() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync before rotate: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close before rotate: %w", err)
	}
	s.file = nil

	archived := archivePath(s.dir, s.role, time.Now().UTC().Format(archiveStampLayout))

	if err := os.Rename(s.ActivePath(), archived); err != nil {
		if openErr := s.openActive(); openErr != nil {
			return fmt.Errorf("archive rename failed (%v), reopen failed: %w", err, openErr)
		}
		return fmt.Errorf("archive %s: %w", filepath.Base(archived), err)
	}

	if s.compress {
		s.compressWg.Add(1)
		go func() {
			defer s.compressWg.Done()
			if err := compressFile(archived); err != nil {
				s.fail("compress", err)
			}
		}()
	}

	return s.openActive()
}

// archivePath returns an unused archive path for the role and stamp.
// A rotation landing in the same millisecond as an earlier one takes a
// sequence suffix instead of overwriting it. The .gz form counts as
// taken: compression may already have replaced the original.
func archivePath(dir, role, stamp string) string {
	base := filepath.Join(dir, archiveDirName, role+"-"+stamp)
	path := base + ".log"
	for seq := 1; archiveTaken(path); seq++ {
		path = fmt.Sprintf("%s-%d.log", base, seq)
	}
	return path
}

func archiveTaken(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	_, err := os.Stat(path + ".gz")
	return err == nil
}

// openActive opens (or creates) the active file in append mode and
// records its size. The caller must hold flushMu.
func (s *Store) openActive() error {
	f, err := os.OpenFile(s.ActivePath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open active file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat active file: %w", err)
	}
	s.file = f
	s.size = info.Size()
	return nil
}

// tickLoop flushes a partially filled buffer on a fixed cadence.
func (s *Store) tickLoop() {
	defer s.tickWg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-s.done:
			return
		}
	}
}

// Destroy stops the background goroutines, flushes the remaining
// buffer synchronously, waits for in-flight compressions, persists the
// stats sidecar, and closes the active file. This is the only path
// guaranteed to leave zero data in the buffer. Idempotent.
func (s *Store) Destroy() error {
	var firstErr error
	s.stopOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.tickWg.Wait()

		if err := s.Flush(); err != nil {
			firstErr = err
		}

		s.compressWg.Wait()

		s.flushMu.Lock()
		defer s.flushMu.Unlock()
		if err := s.persistStats(); err != nil && firstErr == nil {
			firstErr = err
		}
		if s.file != nil {
			if err := s.file.Sync(); err != nil && firstErr == nil {
				firstErr = err
			}
			if err := s.file.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			s.file = nil
		}
	})
	return firstErr
}

func (s *Store) fail(op string, err error) {
	if s.onError != nil {
		s.onError(op, err)
	}
}
