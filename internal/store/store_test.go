package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// testConfig returns a config whose ticker never fires, so tests
// control flushing through thresholds and Destroy.
func testConfig(dir string) model.Config {
	cfg := model.DefaultConfig()
	cfg.Dir = dir
	cfg.BufferSize = 3
	cfg.FlushInterval = time.Hour
	cfg.Compress = false
	return cfg
}

func testEntry(level model.Level, msg string) *model.LogEntry {
	return &model.LogEntry{
		Timestamp: model.FormatTimestamp(time.Now()),
		Source:    model.SourceMain,
		Level:     level,
		Process:   model.ProcessInfo{Type: model.SourceMain, PID: 1},
		Module:    model.ModuleInfo{Category: model.CategoryApp, Filename: "app.ts"},
		Message:   msg,
	}
}

func TestNew(t *testing.T) {
	t.Run("creates layout", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(testConfig(dir), nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer s.Destroy()

		if _, err := os.Stat(filepath.Join(dir, "main.log")); err != nil {
			t.Errorf("active file missing: %v", err)
		}
		if info, err := os.Stat(filepath.Join(dir, archiveDirName)); err != nil || !info.IsDir() {
			t.Errorf("archives directory missing: %v", err)
		}
		if got := s.State(); got != "accumulating" {
			t.Errorf("State = %q, want accumulating", got)
		}
	})

	t.Run("rejects bad config", func(t *testing.T) {
		cfg := testConfig(t.TempDir())
		cfg.BufferSize = 0
		if _, err := New(cfg, nil); err == nil {
			t.Error("expected error for zero buffer size")
		}

		cfg = testConfig(t.TempDir())
		cfg.Source = "GPU"
		if _, err := New(cfg, nil); err == nil {
			t.Error("expected error for unknown source")
		}
	})

	t.Run("role names the active file", func(t *testing.T) {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.Source = model.SourceRenderer
		s, err := New(cfg, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer s.Destroy()

		if got := s.ActivePath(); got != filepath.Join(dir, "renderer.log") {
			t.Errorf("ActivePath = %q", got)
		}
	})
}

func TestWriteFlushesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(dir), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	s.Write(testEntry(model.LevelInfo, "one"), "one")
	s.Write(testEntry(model.LevelInfo, "two"), "two")

	// Below the threshold nothing has hit the disk yet.
	if data, _ := os.ReadFile(s.ActivePath()); len(data) != 0 {
		t.Fatalf("premature flush: %q", data)
	}

	s.Write(testEntry(model.LevelInfo, "three"), "three")

	data, err := os.ReadFile(s.ActivePath())
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	if got := string(data); got != "one\ntwo\nthree\n" {
		t.Errorf("active file = %q", got)
	}
}

func TestTimerFlush(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.BufferSize = 1000
	cfg.FlushInterval = 50 * time.Millisecond
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	s.Write(testEntry(model.LevelInfo, "tick"), "tick")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, _ := os.ReadFile(s.ActivePath()); strings.Contains(string(data), "tick") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timer flush never happened")
}

func TestDestroyDrains(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(dir), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// One line, below the flush threshold.
	s.Write(testEntry(model.LevelInfo, "pending"), "pending")

	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	if !strings.Contains(string(data), "pending") {
		t.Errorf("buffered line lost on Destroy: %q", data)
	}

	// Idempotent.
	if err := s.Destroy(); err != nil {
		t.Errorf("second Destroy: %v", err)
	}

	// Writes after Destroy are dropped, not crashed.
	s.Write(testEntry(model.LevelInfo, "late"), "late")
	data, _ = os.ReadFile(filepath.Join(dir, "main.log"))
	if strings.Contains(string(data), "late") {
		t.Error("write after Destroy reached the file")
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.BufferSize = 10
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				line := fmt.Sprintf("w%d-%d", w, i)
				s.Write(testEntry(model.LevelInfo, line), line)
			}
		}(w)
	}
	wg.Wait()

	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != writers*perWriter {
		t.Errorf("wrote %d lines, want %d", len(lines), writers*perWriter)
	}

	stats := s.Stats()
	if stats.TotalLogs != writers*perWriter {
		t.Errorf("TotalLogs = %d, want %d", stats.TotalLogs, writers*perWriter)
	}
}

// flakyWriter fails its first failures writes partway through,
// keeping what it accepted.
type flakyWriter struct {
	failures int
	buf      bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		n := len(p) / 2
		w.buf.Write(p[:n])
		return n, errors.New("short write")
	}
	w.buf.Write(p)
	return len(p), nil
}

func TestWriteAllResumesPartialWrite(t *testing.T) {
	w := &flakyWriter{failures: 1}
	data := []byte("one\ntwo\n")

	n, err := writeAll(w, data)
	if err != nil {
		t.Fatalf("writeAll: %v", err)
	}
	if n != len(data) {
		t.Errorf("n = %d, want %d", n, len(data))
	}
	// The retry must continue after the accepted prefix, not
	// rewrite it.
	if got := w.buf.String(); got != string(data) {
		t.Errorf("written = %q, want %q", got, data)
	}
}

func TestWriteAllReturnsBytesOnSecondFailure(t *testing.T) {
	w := &flakyWriter{failures: 2}

	n, err := writeAll(w, []byte("abcd"))
	if err == nil {
		t.Fatal("expected error when the retry fails too")
	}
	if n != w.buf.Len() {
		t.Errorf("n = %d, writer accepted %d", n, w.buf.Len())
	}
}

func TestFlushReopensLostActiveFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(dir), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	// A rotation whose reopen failed leaves no handle behind.
	s.flushMu.Lock()
	s.file.Close()
	s.file = nil
	s.flushMu.Unlock()

	for _, msg := range []string{"one", "two", "three"} {
		s.Write(testEntry(model.LevelInfo, msg), msg)
	}

	data, err := os.ReadFile(s.ActivePath())
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	if got := string(data); got != "one\ntwo\nthree\n" {
		t.Errorf("active file = %q", got)
	}
}

func TestArchivePathCollision(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, archiveDirName), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stamp := "20250705T143025.123"

	first := archivePath(dir, "main", stamp)
	if want := filepath.Join(dir, archiveDirName, "main-"+stamp+".log"); first != want {
		t.Fatalf("archivePath = %q, want %q", first, want)
	}
	if err := os.WriteFile(first, []byte("a\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	second := archivePath(dir, "main", stamp)
	if got := filepath.Base(second); got != "main-"+stamp+"-1.log" {
		t.Errorf("second rotation in the same millisecond = %q", got)
	}
	if err := os.WriteFile(second, []byte("b\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := filepath.Base(archivePath(dir, "main", stamp)); got != "main-"+stamp+"-2.log" {
		t.Errorf("third = %q", got)
	}

	// An already-compressed archive claims its name too.
	gz := filepath.Join(dir, archiveDirName, "renderer-"+stamp+".log.gz")
	if err := os.WriteFile(gz, []byte("z"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := filepath.Base(archivePath(dir, "renderer", stamp)); got != "renderer-"+stamp+"-1.log" {
		t.Errorf("collision with compressed archive = %q", got)
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.MaxFileSizeMB = 1
	cfg.BufferSize = 100
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// ~1.2MB in 1KB lines forces one rotation past the 1MB limit.
	line := strings.Repeat("x", 1023)
	for i := 0; i < 1200; i++ {
		s.Write(testEntry(model.LevelInfo, "bulk"), line)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	archives, err := os.ReadDir(filepath.Join(dir, archiveDirName))
	if err != nil {
		t.Fatalf("read archives: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("archive count = %d, want 1", len(archives))
	}
	name := archives[0].Name()
	if !strings.HasPrefix(name, "main-") || !strings.HasSuffix(name, ".log") {
		t.Errorf("archive name %q does not encode role and stamp", name)
	}
	if _, ok := archiveStamp(name); !ok {
		t.Errorf("archive name %q has no parseable stamp", name)
	}

	// The new active file restarted from empty and holds the tail.
	info, err := os.Stat(filepath.Join(dir, "main.log"))
	if err != nil {
		t.Fatalf("stat active: %v", err)
	}
	if info.Size() == 0 || info.Size() >= 1<<20 {
		t.Errorf("active file size = %d after rotation", info.Size())
	}
}

func TestRotationCompresses(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.MaxFileSizeMB = 1
	cfg.BufferSize = 100
	cfg.Compress = true
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	line := strings.Repeat("y", 1023)
	for i := 0; i < 1200; i++ {
		s.Write(testEntry(model.LevelInfo, "bulk"), line)
	}
	// Destroy waits for in-flight compression.
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	archives, err := os.ReadDir(filepath.Join(dir, archiveDirName))
	if err != nil {
		t.Fatalf("read archives: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("archive count = %d, want 1", len(archives))
	}
	name := archives[0].Name()
	if !strings.HasSuffix(name, ".log.gz") {
		t.Fatalf("archive %q is not compressed", name)
	}

	// The compressed archive still decodes to the original lines.
	f, err := os.Open(filepath.Join(dir, archiveDirName, name))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gr.Close()
	content, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(string(content), line) {
		t.Error("decompressed archive is missing the written lines")
	}
}

func TestCompressFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	if err := compressFile(path); err != nil {
		t.Fatalf("compressFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original survived compression")
	}

	f, err := os.Open(path + ".gz")
	if err != nil {
		t.Fatalf("open .gz: %v", err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	data, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read .gz: %v", err)
	}
	if string(data) != "hello\nworld\n" {
		t.Errorf("round trip = %q", data)
	}

	// Rerunning against the already-compressed file is a no-op.
	if err := compressFile(path); err != nil {
		t.Errorf("second compressFile: %v", err)
	}
}

func TestStatsCounting(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(dir), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	s.Write(testEntry(model.LevelInfo, "a"), "a")
	s.Write(testEntry(model.LevelWarn, "b"), "b")
	s.Write(testEntry(model.LevelError, "c"), "c")
	s.Write(testEntry(model.LevelFatal, "d"), "d")

	stats := s.Stats()
	if stats.TotalLogs != 4 {
		t.Errorf("TotalLogs = %d", stats.TotalLogs)
	}
	var sum int64
	for _, n := range stats.ByLevel {
		sum += n
	}
	if sum != stats.TotalLogs {
		t.Errorf("sum(ByLevel) = %d, TotalLogs = %d", sum, stats.TotalLogs)
	}
	if stats.ErrorCount != 2 || stats.WarningCount != 1 {
		t.Errorf("ErrorCount = %d, WarningCount = %d", stats.ErrorCount, stats.WarningCount)
	}
	if stats.ByCategory["app"] != 4 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
}

func TestStatsSidecarSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Write(testEntry(model.LevelInfo, "a"), "a")
	s.Write(testEntry(model.LevelError, "b"), "b")
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, statsFileName)); err != nil {
		t.Fatalf("stats sidecar missing: %v", err)
	}

	// Counters resume, not reset.
	s2, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := s2.Stats().TotalLogs; got != 2 {
		t.Errorf("TotalLogs after restart = %d, want 2", got)
	}
	s2.Write(testEntry(model.LevelInfo, "c"), "c")
	if err := s2.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	s3, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s3.Destroy()
	if got := s3.Stats().TotalLogs; got != 3 {
		t.Errorf("TotalLogs after second restart = %d, want 3", got)
	}
}

func TestCorruptSidecarStartsOver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, statsFileName), []byte("{broken"), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	s, err := New(testConfig(dir), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if got := s.Stats().TotalLogs; got != 0 {
		t.Errorf("TotalLogs = %d, want 0 after corrupt sidecar", got)
	}
}

func TestErrorCallbackOnClosedStore(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var ops []string
	onError := func(op string, err error) {
		mu.Lock()
		ops = append(ops, op)
		mu.Unlock()
	}

	s, err := New(testConfig(dir), onError)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if err := s.flushBatch([]string{"orphan"}); err == nil {
		t.Error("flushBatch on a closed store should fail")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ops) != 1 || ops[0] != "write" {
		t.Errorf("error callback ops = %v, want [write]", ops)
	}
}

func TestFileStats(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.MaxFileSizeMB = 1
	cfg.BufferSize = 100
	cfg.Compress = true
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	line := strings.Repeat("z", 1023)
	for i := 0; i < 1200; i++ {
		s.Write(testEntry(model.LevelInfo, "bulk"), line)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	fs, err := DirStats(dir)
	if err != nil {
		t.Fatalf("DirStats: %v", err)
	}
	if len(fs.ActiveFiles) != 1 || fs.ActiveFiles[0] != "main.log" {
		t.Errorf("ActiveFiles = %v", fs.ActiveFiles)
	}
	if fs.ArchivedFiles != 1 || fs.CompressedFiles != 1 {
		t.Errorf("ArchivedFiles = %d, CompressedFiles = %d", fs.ArchivedFiles, fs.CompressedFiles)
	}
	if fs.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", fs.FileCount)
	}
	if fs.TotalSizeBytes <= 0 {
		t.Errorf("TotalSizeBytes = %d", fs.TotalSizeBytes)
	}
}
