package analyze

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/AstraSolis/quicklog/pkg/model"
)

const archiveDirName = "archives"

// Analyzer reads entries back out of a log directory. It holds no
// state of its own and shares nothing with the writer side; every
// query re-reads the files, so it can run in a separate process.
type Analyzer struct {
	dir string
}

// New returns an Analyzer over dir. The directory does not have to
// exist yet; queries over a missing directory yield empty results.
func New(dir string) *Analyzer {
	return &Analyzer{dir: dir}
}

// TrendPoint is one calendar-date bucket of an error trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ErrorGroup is one message group in a top-errors ranking.
type ErrorGroup struct {
	Message      string `json:"message"`
	Count        int    `json:"count"`
	LastOccurred string `json:"lastOccurred"`
}

// Query returns the entries matching opts, sorted and paginated.
func (a *Analyzer) Query(opts model.QueryOptions) ([]*model.LogEntry, error) {
	match, err := newEntryFilter(opts)
	if err != nil {
		return nil, err
	}

	var entries []*model.LogEntry
	if err := a.scanEach(func(e *model.LogEntry) {
		if match == nil || match(e) {
			entries = append(entries, e)
		}
	}); err != nil {
		return nil, err
	}

	sortEntries(entries, opts.SortBy, opts.Order)
	return paginate(entries, opts.Offset, opts.Limit), nil
}

// Search is Query with a keyword constraint.
func (a *Analyzer) Search(keyword string, opts model.QueryOptions) ([]*model.LogEntry, error) {
	opts.Keyword = keyword
	return a.Query(opts)
}

// ErrorLogs returns ERROR and FATAL entries in the given timestamp
// range. Empty bounds leave that side open.
func (a *Analyzer) ErrorLogs(start, end string) ([]*model.LogEntry, error) {
	return a.Query(model.QueryOptions{
		StartTime: start,
		EndTime:   end,
		Levels:    []model.Level{model.LevelError, model.LevelFatal},
	})
}

// PerformanceLogs returns perf-category entries in the given timestamp
// range.
func (a *Analyzer) PerformanceLogs(start, end string) ([]*model.LogEntry, error) {
	return a.Query(model.QueryOptions{
		StartTime:  start,
		EndTime:    end,
		Categories: []model.Category{model.CategoryPerf},
	})
}

// Stats tallies every readable entry in the directory. Unlike the
// writer's running stats this is computed from the files, so the two
// can differ when files have been cleaned up.
func (a *Analyzer) Stats() (model.LogStats, error) {
	stats := model.NewLogStats()
	now := model.FormatTimestamp(time.Now())
	if err := a.scanEach(func(e *model.LogEntry) {
		stats.Count(e.Level, e.Module.Category, now)
	}); err != nil {
		return model.LogStats{}, err
	}
	return stats, nil
}

// ErrorTrends buckets ERROR and FATAL entries by UTC calendar date
// over the trailing days, today included. The result always has
// exactly days points in ascending date order, zero-filled for quiet
// days.
func (a *Analyzer) ErrorTrends(days int) ([]TrendPoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	counts := make(map[string]int)
	if err := a.scanEach(func(e *model.LogEntry) {
		if e.Level < model.LevelError || len(e.Timestamp) < 10 {
			return
		}
		counts[e.Timestamp[:10]]++
	}); err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, days)
	day := time.Now().UTC().AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		date := day.Format("2006-01-02")
		points = append(points, TrendPoint{Date: date, Count: counts[date]})
		day = day.AddDate(0, 0, 1)
	}
	return points, nil
}

// TopErrors groups ERROR and FATAL entries by exact message text and
// returns the limit most frequent groups. Equal counts order by most
// recent occurrence, then by message.
func (a *Analyzer) TopErrors(limit int) ([]ErrorGroup, error) {
	if limit <= 0 {
		limit = 10
	}

	groups := make(map[string]*ErrorGroup)
	if err := a.scanEach(func(e *model.LogEntry) {
		if e.Level < model.LevelError {
			return
		}
		g, ok := groups[e.Message]
		if !ok {
			g = &ErrorGroup{Message: e.Message}
			groups[e.Message] = g
		}
		g.Count++
		if e.Timestamp > g.LastOccurred {
			g.LastOccurred = e.Timestamp
		}
	}); err != nil {
		return nil, err
	}

	out := make([]ErrorGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].LastOccurred != out[j].LastOccurred {
			return out[i].LastOccurred > out[j].LastOccurred
		}
		return out[i].Message < out[j].Message
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// scanEach feeds every readable entry in the directory to emit:
// archives in name order (chronological, from the rotation stamp),
// then the active files. A file that cannot be opened or read is
// skipped and the scan proceeds over the rest.
func (a *Analyzer) scanEach(emit func(*model.LogEntry)) error {
	files, err := a.listFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		_ = scanFile(path, emit)
	}
	return nil
}

func (a *Analyzer) listFiles() ([]string, error) {
	var files []string

	archDir := filepath.Join(a.dir, archiveDirName)
	if dirents, err := os.ReadDir(archDir); err == nil {
		var names []string
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			name := d.Name()
			if strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".log.gz") {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, n := range names {
			files = append(files, filepath.Join(archDir, n))
		}
	}

	dirents, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}
	var actives []string
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".log") {
			continue
		}
		actives = append(actives, d.Name())
	}
	sort.Strings(actives)
	for _, n := range actives {
		files = append(files, filepath.Join(a.dir, n))
	}
	return files, nil
}

// scanFile reads path line by line, decompressing .gz archives on the
// fly, and emits every line the parser chain accepts. A line longer
// than 1MB ends the scan of that file.
func scanFile(path string, emit func(*model.LogEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		r = gr
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if e, ok := ParseLine(scanner.Text()); ok {
			emit(e)
		}
	}
	return scanner.Err()
}
