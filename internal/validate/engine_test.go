package validate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/dbscope/internal/db"
	"github.com/nhath/dbscope/internal/history"
	"github.com/nhath/dbscope/internal/testutil"
	"github.com/nhath/dbscope/internal/visibility"
)

func seededDriver(t *testing.T) db.Driver {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, db.SQLite, db.ConnectParams{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, db.SeedPeople(ctx, d))
	return d
}

func enabledEngine(t *testing.T, p Prober, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	e := New(p, visibility.NewStore(), opts...)
	e.SetEnabled(context.Background(), true)
	return e
}

func TestEngine_PersonExamples(t *testing.T) {
	ctx := context.Background()
	e := enabledEngine(t, seededDriver(t))

	out := e.Validate(ctx, "SELECT * FROM person")
	require.True(t, out.Applied)
	assert.Equal(t, Valid, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, []string{"id", "firstname", "lastname", "age"}, out.Result.Columns)
	assert.Len(t, out.Result.Rows, 2)
	good := out.Result

	out = e.Validate(ctx, "SELECT * FROM person WHERE age > 99")
	assert.Equal(t, InvalidEmpty, out.Status)
	assert.Same(t, good, out.Result)
	assert.NoError(t, out.Err)

	out = e.Validate(ctx, "SELECT * FROM nosuchtable")
	assert.Equal(t, Invalid, out.Status)
	assert.True(t, db.IsQueryError(out.Err))
	assert.Same(t, good, out.Result)
	assert.Same(t, good, e.Current())
	assert.Equal(t, Invalid, e.Status())
	assert.Error(t, e.LastError())
}

type countingProber struct {
	mu    sync.Mutex
	calls []string
	res   *db.QueryResult
}

func (p *countingProber) Probe(ctx context.Context, query string, maxRows int) (*db.QueryResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, query)
	return p.res, nil
}

func TestEngine_DisabledAndEmpty(t *testing.T) {
	ctx := context.Background()
	p := &countingProber{res: &db.QueryResult{Columns: []string{"a"}, Rows: [][]string{{"1"}}, RowCount: 1}}
	e := New(p, nil, WithLogger(testutil.NewTestLogger(t)))

	out := e.Validate(ctx, "SELECT a FROM t")
	assert.Equal(t, Disabled, out.Status)
	assert.Nil(t, out.Result)
	assert.Empty(t, p.calls)
	assert.False(t, e.Enabled())

	// enabling re-validates the text typed while disabled
	out = e.SetEnabled(ctx, true)
	assert.Equal(t, Valid, out.Status)
	assert.Equal(t, []string{"SELECT a FROM t"}, p.calls)
	shown := out.Result

	out = e.Validate(ctx, "   \n\t")
	assert.Equal(t, Valid, out.Status)
	assert.Same(t, shown, out.Result)
	assert.Len(t, p.calls, 1)

	// disabling freezes the last good view
	out = e.SetEnabled(ctx, false)
	assert.Equal(t, Disabled, out.Status)
	assert.Same(t, shown, out.Result)
	assert.Len(t, p.calls, 1)
}

// gatedProber blocks each query until its gate is released and ignores
// cancellation, so completion order is fully controlled by the test.
type gatedProber struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
}

func newGatedProber(queries ...string) *gatedProber {
	g := &gatedProber{gates: make(map[string]chan struct{}), started: make(chan string, len(queries))}
	for _, q := range queries {
		g.gates[q] = make(chan struct{})
	}
	return g
}

func (g *gatedProber) Probe(ctx context.Context, query string, maxRows int) (*db.QueryResult, error) {
	g.mu.Lock()
	gate := g.gates[query]
	g.mu.Unlock()
	g.started <- query
	<-gate
	return &db.QueryResult{Columns: []string{"q"}, Rows: [][]string{{query}}, RowCount: 1}, nil
}

func (g *gatedProber) release(q string) { close(g.gates[q]) }

func TestEngine_SupersededResultsAreDiscarded(t *testing.T) {
	for _, order := range [][]string{{"A", "B"}, {"B", "A"}} {
		t.Run("release "+order[0]+" first", func(t *testing.T) {
			ctx := context.Background()
			g := newGatedProber("A", "B")
			var updates []string
			sink := SinkFunc(func(status Status, res *db.QueryResult, err error) {
				if res != nil {
					updates = append(updates, res.Rows[0][0])
				}
			})
			e := enabledEngine(t, g, WithSink(sink))

			outs := make(map[string]Outcome)
			var mu sync.Mutex
			var wg sync.WaitGroup
			run := func(q string) {
				defer wg.Done()
				o := e.Validate(ctx, q)
				mu.Lock()
				outs[q] = o
				mu.Unlock()
			}

			wg.Add(1)
			go run("A")
			require.Equal(t, "A", <-g.started)
			wg.Add(1)
			go run("B")
			require.Equal(t, "B", <-g.started)

			g.release(order[0])
			time.Sleep(10 * time.Millisecond)
			g.release(order[1])
			wg.Wait()

			assert.True(t, outs["A"].Superseded)
			assert.False(t, outs["A"].Applied)
			assert.True(t, outs["B"].Applied)
			assert.Equal(t, Valid, outs["B"].Status)
			assert.Equal(t, "B", e.Current().Rows[0][0])
			assert.Equal(t, []string{"B"}, updates)
			assert.Equal(t, "B", e.Text())
			assert.Equal(t, uint64(3), e.Generation())
		})
	}
}

func TestEngine_RapidEditsLastWins(t *testing.T) {
	ctx := context.Background()
	e := enabledEngine(t, seededDriver(t))

	edits := []string{"S", "SEL", "SELECT", "SELECT *", "SELECT * FROM", "SELECT * FROM person WHERE age < 7"}
	var wg sync.WaitGroup
	for _, q := range edits[:len(edits)-1] {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			e.Validate(ctx, q)
		}(q)
	}
	wg.Wait()

	out := e.Validate(ctx, edits[len(edits)-1])
	require.True(t, out.Applied)
	assert.Equal(t, Valid, out.Status)
	require.Len(t, e.Current().Rows, 1)
	assert.Equal(t, "Maggie", e.Current().RowMap(0)["firstname"])
}

type reportingSink struct {
	states map[string]bool
	last   Status
}

func (s *reportingSink) Update(status Status, res *db.QueryResult, err error) { s.last = status }
func (s *reportingSink) ColumnStates() map[string]bool                      { return s.states }

func TestEngine_SnapshotsVisibilityBeforeReplacing(t *testing.T) {
	ctx := context.Background()
	vis := visibility.NewStore()
	sink := &reportingSink{states: map[string]bool{"lastname": true}}
	e := New(seededDriver(t), vis, WithSink(sink), WithLogger(testutil.NewTestLogger(t)))
	e.SetEnabled(ctx, true)

	out := e.Validate(ctx, "SELECT age, lastname FROM person")
	require.Equal(t, Valid, out.Status)
	assert.Equal(t, Valid, sink.last)
	assert.True(t, vis.IsHidden("lastname"))
	assert.Equal(t, []string{"age"}, vis.VisibleColumns(out.Result.Columns))
	assert.ElementsMatch(t, []string{"lastname", "age"}, vis.Known())
}

type memRecorder struct {
	entries []*history.Entry
}

func (r *memRecorder) Add(e *history.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestEngine_RecordsValidations(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	e := enabledEngine(t, seededDriver(t), WithRecorder(rec, "test.db"))

	e.Validate(ctx, "SELECT * FROM person")
	e.Validate(ctx, "")
	e.Validate(ctx, "SELECT * FROM nosuchtable")

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "valid", rec.entries[0].Status)
	assert.Equal(t, 2, rec.entries[0].RowCount)
	assert.Equal(t, "test.db", rec.entries[0].Source)
	assert.Equal(t, "invalid", rec.entries[1].Status)
	assert.Contains(t, rec.entries[1].ErrorMessage, "nosuchtable")
}

func TestEngine_CancelledCallerDoesNotApply(t *testing.T) {
	e := enabledEngine(t, seededDriver(t))
	e.Validate(context.Background(), "SELECT * FROM person")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := e.Validate(ctx, "SELECT * FROM person WHERE age > 99")
	assert.False(t, out.Applied)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, Valid, e.Status())
	assert.Len(t, e.Current().Rows, 2)
}

func TestEngine_MaxRows(t *testing.T) {
	e := enabledEngine(t, seededDriver(t), WithMaxRows(1))
	out := e.Validate(context.Background(), "SELECT * FROM person")
	require.Equal(t, Valid, out.Status)
	assert.Len(t, out.Result.Rows, 1)
	assert.True(t, out.Result.Truncated)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "invalid-empty", InvalidEmpty.String())
	assert.Equal(t, "invalid", Invalid.String())
	assert.Equal(t, "unknown", Status(42).String())
}
