package xref

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/dbscope/internal/testutil"
)

type countingReader struct {
	fs    fstest.MapFS
	reads atomic.Int32
	delay time.Duration
}

func (r *countingReader) ReadFile(name string) ([]byte, error) {
	r.reads.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.fs.ReadFile(name)
}

func newLocator(t *testing.T, r Reader) *Locator {
	return NewLocator(WithReader(r), WithLogger(testutil.NewTestLogger(t)))
}

func TestLocator_ResolveCachesContent(t *testing.T) {
	r := &countingReader{fs: fstest.MapFS{"src/calc.py": {Data: []byte(sample)}}}
	l := newLocator(t, r)

	first, err := l.Resolve("src/calc.py", 3)
	require.NoError(t, err)
	assert.Equal(t, sample, first.Content)
	assert.Equal(t, "    a,\n", first.Highlighted())
	assert.Equal(t, "total = compute(\n", first.Before())
	assert.Equal(t, "    b)\nprint(total)\n", first.After())
	assert.True(t, l.Cached("src/calc.py"))

	second, err := l.Resolve("src/calc.py", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), r.reads.Load())

	// a different line reuses the cached content
	other, err := l.Resolve("src/calc.py", 1)
	require.NoError(t, err)
	assert.Equal(t, "total = compute(", other.Highlighted())
	assert.Equal(t, int32(1), r.reads.Load())
	assert.Equal(t, 1, l.Len())
}

func TestLocator_ClampsLine(t *testing.T) {
	l := newLocator(t, fstest.MapFS{"a.txt": {Data: []byte("one\ntwo\n")}})

	res, err := l.Resolve("a.txt", 42)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Line)
	assert.Equal(t, "two", res.Highlighted())

	res, err = l.Resolve("a.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Line)
	assert.Equal(t, "one", res.Highlighted())
}

func TestLocator_FileNotFoundIsNotCached(t *testing.T) {
	fsys := fstest.MapFS{}
	r := &countingReader{fs: fsys}
	l := newLocator(t, r)

	_, err := l.Resolve("late.txt", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NotErrorIs(t, err, ErrFileRead)
	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "late.txt", oe.Path)
	assert.False(t, l.Cached("late.txt"))

	fsys["late.txt"] = &fstest.MapFile{Data: []byte("here now\n")}
	res, err := l.Resolve("late.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, "here now", res.Highlighted())
	assert.Equal(t, int32(2), r.reads.Load())
}

type brokenReader struct{}

func (brokenReader) ReadFile(string) ([]byte, error) {
	return nil, errors.New("input/output error")
}

func TestLocator_FileReadError(t *testing.T) {
	l := newLocator(t, brokenReader{})
	_, err := l.Resolve("any.txt", 1)
	assert.ErrorIs(t, err, ErrFileRead)
	assert.NotErrorIs(t, err, ErrFileNotFound)
	assert.Contains(t, err.Error(), "input/output error")
	assert.Equal(t, 0, l.Len())
}

func TestLocator_OSReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.ini")
	require.NoError(t, os.WriteFile(path, []byte("name = x\n  a\nb\n"), 0o644))

	l := NewLocator(WithLogger(testutil.NewTestLogger(t)))
	res, err := l.Resolve(path, 3)
	require.NoError(t, err)
	assert.Equal(t, "  a\n", res.Highlighted())

	_, err = l.Resolve(filepath.Join(dir, "missing.ini"), 1)
	assert.ErrorIs(t, err, ErrFileNotFound)

	// reading a directory fails for a reason other than absence
	_, err = l.Resolve(dir, 1)
	assert.ErrorIs(t, err, ErrFileRead)
}

func TestLocator_ConcurrentResolveReadsOnce(t *testing.T) {
	r := &countingReader{
		fs:    fstest.MapFS{"shared.txt": {Data: []byte(sample)}},
		delay: 20 * time.Millisecond,
	}
	l := newLocator(t, r)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(line int) {
			defer wg.Done()
			res, err := l.Resolve("shared.txt", line)
			assert.NoError(t, err)
			assert.Equal(t, sample, res.Content)
		}(i%4 + 1)
	}
	wg.Wait()
	assert.Equal(t, int32(1), r.reads.Load())
}

func TestExtractRef(t *testing.T) {
	tests := []struct {
		name     string
		row      map[string]string
		wantFile string
		wantLine int
		wantOK   bool
	}{
		{name: "lowercase", row: map[string]string{"file": "a.go", "line": "12"}, wantFile: "a.go", wantLine: 12, wantOK: true},
		{name: "mixed case", row: map[string]string{"File": "b.go", "LINE": " 3 "}, wantFile: "b.go", wantLine: 3, wantOK: true},
		{name: "extra columns", row: map[string]string{"id": "1", "file": "c.go", "line": "1", "msg": "x"}, wantFile: "c.go", wantLine: 1, wantOK: true},
		{name: "missing line", row: map[string]string{"file": "a.go"}},
		{name: "missing file", row: map[string]string{"line": "2"}},
		{name: "blank file", row: map[string]string{"file": " ", "line": "2"}},
		{name: "non numeric line", row: map[string]string{"file": "a.go", "line": "NULL"}},
		{name: "zero line", row: map[string]string{"file": "a.go", "line": "0"}},
		{name: "nil row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, line, ok := ExtractRef(tt.row)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFile, file)
			assert.Equal(t, tt.wantLine, line)
		})
	}
}
