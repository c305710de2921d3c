package recorder

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AstraSolis/quicklog/internal/format"
	"github.com/AstraSolis/quicklog/internal/store"
	"github.com/AstraSolis/quicklog/pkg/model"
)

// Recorder is the write side of the pipeline. It gates on level,
// assembles entries, and hands them to the console and file sinks.
// Recording never returns an error and never panics; pipeline faults
// surface through error events instead.
//
// One Recorder per process role. Two recorders over the same directory
// with conflicting settings are the caller's responsibility; roles are
// kept apart by per-role active file names.
type Recorder struct {
	cfg       model.Config
	sessionID string
	txnSeq    atomic.Int64
	pid       int

	console *consoleSink
	store   *store.Store
	obs     *observers

	destroyOnce sync.Once
	destroyed   atomic.Bool
	destroyErr  error
}

// Option adds optional fields to an entry being recorded.
type Option func(*model.LogEntry)

// WithData attaches structured payload data.
func WithData(data map[string]any) Option {
	return func(e *model.LogEntry) {
		if len(data) > 0 {
			e.Data = data
		}
	}
}

// WithError attaches err to the entry, capturing the current call
// stack so the stored entry shows where the failure was recorded. nil
// is ignored.
func WithError(err error) Option {
	return func(e *model.LogEntry) {
		if err == nil {
			return
		}
		e.Error = &model.ErrorInfo{
			Message: err.Error(),
			Stack:   string(debug.Stack()),
		}
	}
}

// WithErrorInfo attaches already-assembled error details verbatim, for
// callers relaying failures that happened elsewhere. nil is ignored.
func WithErrorInfo(info *model.ErrorInfo) Option {
	return func(e *model.LogEntry) {
		if info != nil {
			e.Error = info
		}
	}
}

// New builds a Recorder from cfg, failing fast on invalid settings.
func New(cfg model.Config) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recorder config: %w", err)
	}

	r := &Recorder{
		cfg:       cfg,
		sessionID: uuid.New().String(),
		pid:       os.Getpid(),
		obs:       newObservers(),
	}
	if cfg.Console {
		r.console = newConsoleSink()
	}
	if cfg.File {
		st, err := store.New(cfg, r.storeError)
		if err != nil {
			return nil, err
		}
		r.store = st
	}
	return r, nil
}

// SessionID returns the identifier stamped on every entry this
// Recorder produces.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Record writes one entry at the given level. Calls below the
// configured threshold are dropped before assembly and leave no trace:
// no transaction id is consumed and no events fire.
func (r *Recorder) Record(level model.Level, message string, category model.Category, filename string, opts ...Option) {
	if level < r.cfg.Level || r.destroyed.Load() {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.obs.emit(Event{Kind: EventError, Op: "record", Err: fmt.Errorf("record panic: %v", p)})
		}
	}()

	e := &model.LogEntry{
		Timestamp:     model.FormatTimestamp(time.Now()),
		Source:        r.cfg.Source,
		Level:         level,
		Process:       model.ProcessInfo{Type: r.cfg.Source, PID: r.pid},
		Module:        model.ModuleInfo{Category: category, Filename: filename},
		Message:       message,
		TransactionID: fmt.Sprintf("%s-%d", r.sessionID, r.txnSeq.Add(1)),
		SessionID:     r.sessionID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	r.dispatch(e)
}

// Trace records at TRACE level.
func (r *Recorder) Trace(message string, category model.Category, filename string, opts ...Option) {
	r.Record(model.LevelTrace, message, category, filename, opts...)
}

// Debug records at DEBUG level.
func (r *Recorder) Debug(message string, category model.Category, filename string, opts ...Option) {
	r.Record(model.LevelDebug, message, category, filename, opts...)
}

// Info records at INFO level.
func (r *Recorder) Info(message string, category model.Category, filename string, opts ...Option) {
	r.Record(model.LevelInfo, message, category, filename, opts...)
}

// Warn records at WARN level.
func (r *Recorder) Warn(message string, category model.Category, filename string, opts ...Option) {
	r.Record(model.LevelWarn, message, category, filename, opts...)
}

// Error records at ERROR level.
func (r *Recorder) Error(message string, category model.Category, filename string, opts ...Option) {
	r.Record(model.LevelError, message, category, filename, opts...)
}

// Fatal records at FATAL level. It does not terminate the process;
// that call belongs to the host.
func (r *Recorder) Fatal(message string, category model.Category, filename string, opts ...Option) {
	r.Record(model.LevelFatal, message, category, filename, opts...)
}

func (r *Recorder) dispatch(e *model.LogEntry) {
	if r.console != nil {
		if err := r.console.write(e); err != nil {
			r.obs.emit(Event{Kind: EventError, Op: "console", Err: err})
		}
	}

	if r.store != nil {
		line, err := format.Canonical(e)
		if err != nil {
			r.obs.emit(Event{Kind: EventError, Op: "format", Err: err})
		} else {
			r.store.Write(e, line)
		}
	}

	r.obs.emit(Event{Kind: EventLog, Entry: e})
}

// storeError adapts file store failures into error events.
func (r *Recorder) storeError(op string, err error) {
	r.obs.emit(Event{Kind: EventError, Op: op, Err: err})
}

// Subscribe registers fn for log and error events and returns its
// subscription id.
func (r *Recorder) Subscribe(fn Observer) int {
	return r.obs.subscribe(fn)
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (r *Recorder) Unsubscribe(id int) {
	r.obs.unsubscribe(id)
}

// Stats returns the cumulative counters kept by the file store. With
// the file sink disabled nothing accumulates and the result is zeroed.
func (r *Recorder) Stats() model.LogStats {
	if r.store == nil {
		return model.NewLogStats()
	}
	return r.store.Stats()
}

// FileStats aggregates the on-disk state of the log directory.
func (r *Recorder) FileStats() (model.FileStats, error) {
	if r.store == nil {
		return model.FileStats{}, nil
	}
	return r.store.FileStats()
}

// Cleanup enforces the retention limits now and returns how many
// archives were removed.
func (r *Recorder) Cleanup() (int, error) {
	if r.store == nil {
		return 0, nil
	}
	return r.store.Cleanup()
}

// StartRetentionLoop enforces retention on a fixed cadence until
// Destroy. No-op without a file sink.
func (r *Recorder) StartRetentionLoop(interval time.Duration) {
	if r.store != nil {
		r.store.StartRetentionLoop(interval)
	}
}

// Destroy drains the file store synchronously and detaches all
// observers. Records arriving afterwards are dropped. Idempotent; the
// first call's result is sticky.
func (r *Recorder) Destroy() error {
	r.destroyOnce.Do(func() {
		r.destroyed.Store(true)
		if r.store != nil {
			r.destroyErr = r.store.Destroy()
		}
		r.obs.clear()
	})
	return r.destroyErr
}
