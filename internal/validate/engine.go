// Package validate re-evaluates a user-edited query on every change and
// classifies it, keeping the last good result on screen when the new text
// fails or returns nothing.
package validate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nhath/dbscope/internal/db"
	"github.com/nhath/dbscope/internal/history"
	"github.com/nhath/dbscope/internal/visibility"
)

// Status classifies the most recent validation
type Status int

const (
	Disabled Status = iota
	Valid
	InvalidEmpty
	Invalid
)

func (s Status) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Valid:
		return "valid"
	case InvalidEmpty:
		return "invalid-empty"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// DefaultMaxRows caps rows read by a probe
const DefaultMaxRows = 1000

// Prober runs a read-only query
type Prober interface {
	Probe(ctx context.Context, query string, maxRows int) (*db.QueryResult, error)
}

// Sink receives every applied validation. result is the result now on
// display, which is the previous one unless status is Valid. Update is
// called with the engine lock held and must not call back into the engine.
type Sink interface {
	Update(status Status, result *db.QueryResult, err error)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(status Status, result *db.QueryResult, err error)

func (f SinkFunc) Update(status Status, result *db.QueryResult, err error) { f(status, result, err) }

// StateReporter is implemented by sinks that can report the hidden state
// of the columns they currently show, keyed by column name.
type StateReporter interface {
	ColumnStates() map[string]bool
}

// Recorder stores validations that reached the database
type Recorder interface {
	Add(entry *history.Entry) error
}

// Outcome describes what one Validate call did
type Outcome struct {
	Generation uint64
	Status     Status
	Result     *db.QueryResult // result on display after this call
	Err        error           // query error for Invalid, context error when abandoned
	Applied    bool
	Superseded bool // a newer request arrived first; nothing was changed
}

// Engine owns the displayed result. It is safe for concurrent use; only
// the newest request may change state.
type Engine struct {
	prober   Prober
	vis      *visibility.Store
	sink     Sink
	recorder Recorder
	source   string
	maxRows  int
	logger   *slog.Logger

	mu       sync.Mutex
	gen      uint64
	enabled  bool
	lastText string
	status   Status
	current  *db.QueryResult
	lastErr  error
	cancel   context.CancelFunc
}

// Option configures an Engine
type Option func(*Engine)

// WithSink sets the display sink
func WithSink(s Sink) Option { return func(e *Engine) { e.sink = s } }

// WithRecorder records every validation that ran a query, labelled with source
func WithRecorder(r Recorder, source string) Option {
	return func(e *Engine) {
		e.recorder = r
		e.source = source
	}
}

// WithMaxRows caps the rows read per probe; 0 means no cap
func WithMaxRows(n int) Option { return func(e *Engine) { e.maxRows = n } }

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// New returns a disabled engine. Call SetEnabled to start evaluating.
func New(prober Prober, vis *visibility.Store, opts ...Option) *Engine {
	e := &Engine{
		prober:  prober,
		vis:     vis,
		maxRows: DefaultMaxRows,
		status:  Disabled,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.vis == nil {
		e.vis = visibility.NewStore()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Validate evaluates text and applies the outcome if no newer request has
// been made meanwhile. Starting a request cancels the probe of the previous
// one.
func (e *Engine) Validate(ctx context.Context, text string) Outcome {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.lastText = text
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if !e.enabled {
		out := e.applyLocked(gen, Disabled, nil, nil)
		e.mu.Unlock()
		return out
	}
	// empty input is not an error, but there is nothing to run either
	if strings.TrimSpace(text) == "" {
		out := e.applyLocked(gen, Valid, nil, nil)
		e.mu.Unlock()
		return out
	}

	pctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	start := time.Now()
	res, err := e.prober.Probe(pctx, text, e.maxRows)
	elapsed := time.Since(start)
	cancel()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.logger.Debug("discarding superseded validation", slog.Uint64("generation", gen), slog.String("query", text))
		return Outcome{Generation: gen, Superseded: true}
	}
	e.cancel = nil
	if ctxErr := ctx.Err(); ctxErr != nil {
		status := e.status
		e.mu.Unlock()
		return Outcome{Generation: gen, Status: status, Err: ctxErr}
	}

	var out Outcome
	switch {
	case err != nil:
		out = e.applyLocked(gen, Invalid, nil, err)
	case len(res.Rows) == 0:
		out = e.applyLocked(gen, InvalidEmpty, nil, nil)
	default:
		out = e.applyLocked(gen, Valid, res, nil)
	}
	e.mu.Unlock()

	e.record(text, out, res, elapsed)
	return out
}

// applyLocked commits a classification. A non-nil res replaces the
// displayed result; otherwise the previous one stays. Must hold e.mu.
func (e *Engine) applyLocked(gen uint64, status Status, res *db.QueryResult, err error) Outcome {
	if res != nil {
		// keep toggles made on the outgoing display before replacing it
		if r, ok := e.sink.(StateReporter); ok {
			e.vis.Snapshot(r.ColumnStates())
		}
		e.current = res
		e.vis.Observe(res.Columns)
	}
	e.status = status
	e.lastErr = err
	if e.sink != nil {
		e.sink.Update(status, e.current, err)
	}
	return Outcome{Generation: gen, Status: status, Result: e.current, Err: err, Applied: true}
}

func (e *Engine) record(text string, out Outcome, res *db.QueryResult, elapsed time.Duration) {
	if e.recorder == nil {
		return
	}
	entry := &history.Entry{
		Source:     e.source,
		Query:      text,
		Status:     out.Status.String(),
		ExecutedAt: time.Now(),
		DurationMs: elapsed.Milliseconds(),
	}
	if res != nil {
		entry.RowCount = res.RowCount
	}
	if out.Err != nil {
		entry.ErrorMessage = out.Err.Error()
	}
	if err := e.recorder.Add(entry); err != nil {
		e.logger.Warn("failed to record validation", slog.Any("error", err))
	}
}

// SetEnabled turns evaluation on or off and re-validates the current text
func (e *Engine) SetEnabled(ctx context.Context, enabled bool) Outcome {
	e.mu.Lock()
	e.enabled = enabled
	text := e.lastText
	e.mu.Unlock()
	return e.Validate(ctx, text)
}

// Enabled reports whether evaluation is on
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Status returns the classification of the newest applied validation
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Current returns the displayed result, nil before the first valid query
func (e *Engine) Current() *db.QueryResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// LastError returns the error of the newest applied validation
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Text returns the most recently submitted query text
func (e *Engine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastText
}

// Generation returns the number of requests made so far
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}
