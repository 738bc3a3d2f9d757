package schema

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/dbscope/internal/db"
	"github.com/nhath/dbscope/internal/testutil"
)

type fakeConn struct {
	mu         sync.Mutex
	tables     []string
	columns    map[string][]db.Column
	failTables map[string]bool
	listErr    error
	listCalls  int
	schemaHits int
}

func (f *fakeConn) ListTables(ctx context.Context, includeSystem bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tables, nil
}

func (f *fakeConn) TableSchema(ctx context.Context, table string) ([]db.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemaHits++
	if f.failTables[table] {
		return nil, db.WrapQueryError(errors.New("boom"))
	}
	return f.columns[table], nil
}

func newFake() *fakeConn {
	return &fakeConn{
		tables: []string{"person", "event", "broken"},
		columns: map[string][]db.Column{
			"person": {
				{Name: "id", Type: "INTEGER", PKRank: 1},
				{Name: "firstname", Type: "TEXT", Nullable: true},
			},
			"event": {
				{Name: "file", Type: "TEXT"},
				{Name: "line", Type: "INTEGER", Default: "0"},
			},
		},
		failTables: map[string]bool{"broken": true},
	}
}

func TestCatalog_IntrospectCachesAndOmitsFailures(t *testing.T) {
	ctx := context.Background()
	conn := newFake()
	c := NewCatalog(conn, WithLogger(testutil.NewTestLogger(t)))

	tables, err := c.Introspect(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "person", tables[0].TableName)
	assert.Equal(t, "event", tables[1].TableName)
	assert.Equal(t, []string{"id"}, tables[0].PrimaryKeys())
	assert.Equal(t, ColumnDescriptor{Name: "firstname", DeclaredType: "TEXT"}, tables[0].Columns[1])

	_, err = c.Introspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.listCalls)
	assert.Equal(t, 3, conn.schemaHits)
	assert.True(t, c.Loaded())
}

func TestCatalog_PropertyOf(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(newFake(), WithLogger(testutil.NewTestLogger(t)))

	tests := []struct {
		table, column string
		prop          Property
		want          string
		ok            bool
	}{
		{"person", "id", PropType, "INTEGER", true},
		{"person", "id", PropPrimaryKey, "1", true},
		{"person", "firstname", PropPrimaryKey, "0", true},
		{"person", "firstname", PropNullable, "true", true},
		{"event", "line", PropDefault, "0", true},
		{"person", "nosuch", PropType, "", false},
		{"broken", "id", PropType, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.table+"."+tt.column+"."+string(tt.prop), func(t *testing.T) {
			got, ok := c.PropertyOf(ctx, tt.table, tt.column, tt.prop)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, c.IsPrimaryKey(ctx, "person", "id"))
	assert.False(t, c.IsPrimaryKey(ctx, "person", "firstname"))
	assert.False(t, c.IsPrimaryKey(ctx, "nosuch", "id"))
}

func TestCatalog_SchemaUnavailable(t *testing.T) {
	ctx := context.Background()
	conn := newFake()
	conn.listErr = errors.New("disk I/O error")
	c := NewCatalog(conn, WithLogger(testutil.NewTestLogger(t)))

	tables, err := c.Introspect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrSchemaUnavailable)
	assert.Empty(t, tables)
	assert.False(t, c.Loaded())
	assert.Empty(t, c.TableNames(ctx))

	_, ok := c.PropertyOf(ctx, "person", "id", PropType)
	assert.False(t, ok)
}

func TestCatalog_InvalidateReloads(t *testing.T) {
	ctx := context.Background()
	conn := newFake()
	c := NewCatalog(conn, WithLogger(testutil.NewTestLogger(t)))

	_, err := c.Introspect(ctx)
	require.NoError(t, err)

	conn.mu.Lock()
	conn.tables = []string{"person"}
	conn.mu.Unlock()

	// stale until invalidated
	assert.Equal(t, []string{"person", "event"}, c.TableNames(ctx))

	c.Invalidate()
	assert.False(t, c.Loaded())
	assert.Equal(t, []string{"person"}, c.TableNames(ctx))
	assert.Equal(t, 2, conn.listCalls)

	other := newFake()
	other.tables = []string{"event"}
	c.Reset(other)
	ts, ok := c.Table(ctx, "event")
	require.True(t, ok)
	assert.Len(t, ts.Columns, 2)
	_, ok = c.Table(ctx, "person")
	assert.False(t, ok)
}

func TestCatalog_SQLite(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, db.SQLite, db.ConnectParams{Database: ":memory:"})
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, db.SeedPeople(ctx, d))

	c := NewCatalog(d, WithLogger(testutil.NewTestLogger(t)))
	ts, ok := c.Table(ctx, "person")
	require.True(t, ok)
	names := make([]string, len(ts.Columns))
	for i, col := range ts.Columns {
		names[i] = col.Name
	}
	assert.Equal(t, []string{"id", "firstname", "lastname", "age"}, names)
	assert.Equal(t, []string{"id"}, ts.PrimaryKeys())

	typ, ok := c.PropertyOf(ctx, "person", "lastname", PropType)
	require.True(t, ok)
	assert.Equal(t, "VARCHAR(30)", typ)
}
