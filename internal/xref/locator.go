package xref

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileRead     = errors.New("file read error")
)

// OpenError reports a referenced file that could not be loaded. Kind is
// ErrFileNotFound or ErrFileRead.
type OpenError struct {
	Path string
	Kind error
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Reader loads file contents
type Reader interface {
	ReadFile(name string) ([]byte, error)
}

// OSReader reads from the local filesystem
type OSReader struct{}

func (OSReader) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// Resolution is a resolved reference: full file content plus the span to
// highlight
type Resolution struct {
	Path    string
	Content string
	Line    int // clamped 1-based line the span was computed for
	Span
}

// Highlighted returns the text covered by the span
func (r Resolution) Highlighted() string {
	return r.Content[r.Start:r.End]
}

// Before returns the text preceding the span
func (r Resolution) Before() string { return r.Content[:r.Start] }

// After returns the text following the span
func (r Resolution) After() string { return r.Content[r.End:] }

// Locator resolves references and caches file contents for its lifetime.
// Files are read at most once per path, also under concurrent calls;
// failed reads are not cached.
type Locator struct {
	reader Reader
	finder Finder
	logger *slog.Logger

	mu    sync.RWMutex
	files map[string]string
	group singleflight.Group
}

// Option configures a Locator
type Option func(*Locator)

// WithReader replaces the filesystem reader
func WithReader(r Reader) Option { return func(l *Locator) { l.reader = r } }

// WithPatterns replaces the block boundary patterns
func WithPatterns(f Finder) Option { return func(l *Locator) { l.finder = f } }

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option { return func(l *Locator) { l.logger = logger } }

// NewLocator returns a locator reading from the local filesystem by default
func NewLocator(opts ...Option) *Locator {
	l := &Locator{
		reader: OSReader{},
		finder: defaultFinder,
		files:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Resolve loads path (from cache when possible) and computes the block
// span around line.
func (l *Locator) Resolve(path string, line int) (Resolution, error) {
	content, err := l.load(path)
	if err != nil {
		return Resolution{}, err
	}
	li := indexLines(content)
	clamped := li.clamp(line) + 1
	if clamped != line {
		l.logger.Debug("line out of range, clamped", slog.String("path", path), slog.Int("line", line), slog.Int("clamped", clamped))
	}
	return Resolution{
		Path:    path,
		Content: content,
		Line:    clamped,
		Span:    l.finder.Find(content, clamped),
	}, nil
}

// Cached reports whether path has been loaded successfully
func (l *Locator) Cached(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.files[path]
	return ok
}

// Len returns the number of cached files
func (l *Locator) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.files)
}

func (l *Locator) load(path string) (string, error) {
	l.mu.RLock()
	content, ok := l.files[path]
	l.mu.RUnlock()
	if ok {
		return content, nil
	}

	v, err, _ := l.group.Do(path, func() (any, error) {
		l.mu.RLock()
		content, ok := l.files[path]
		l.mu.RUnlock()
		if ok {
			return content, nil
		}

		data, err := l.reader.ReadFile(path)
		if err != nil {
			kind := ErrFileRead
			if errors.Is(err, fs.ErrNotExist) {
				kind = ErrFileNotFound
			}
			l.logger.Warn("cannot load referenced file", slog.String("path", path), slog.Any("error", err))
			return "", &OpenError{Path: path, Kind: kind, Err: err}
		}

		content = string(data)
		l.mu.Lock()
		l.files[path] = content
		l.mu.Unlock()
		l.logger.Debug("cached referenced file", slog.String("path", path), slog.Int("bytes", len(data)))
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Column names carrying a reference in result rows, matched case-insensitively
const (
	FileColumn = "file"
	LineColumn = "line"
)

// ExtractRef pulls a file:line reference out of a result row. ok is false
// when either column is missing, the file is blank or the line is not a
// positive integer.
func ExtractRef(row map[string]string) (file string, line int, ok bool) {
	var lineText string
	var haveFile, haveLine bool
	for k, v := range row {
		switch {
		case strings.EqualFold(k, FileColumn):
			file, haveFile = strings.TrimSpace(v), true
		case strings.EqualFold(k, LineColumn):
			lineText, haveLine = strings.TrimSpace(v), true
		}
	}
	if !haveFile || !haveLine || file == "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(lineText)
	if err != nil || n < 1 {
		return "", 0, false
	}
	return file, n, true
}
