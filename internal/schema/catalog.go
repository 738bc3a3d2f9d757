// Package schema introspects table and column metadata and caches it for
// the lifetime of a connection.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nhath/dbscope/internal/db"
)

// Property names a cached column attribute
type Property string

const (
	PropType       Property = "type"
	PropPrimaryKey Property = "pk" // primary key rank, "0" when not part of the key
	PropNullable   Property = "nullable"
	PropDefault    Property = "default"
)

// introspectLimit bounds concurrent per-table metadata queries
const introspectLimit = 8

// Introspector is the part of a connection the catalog needs
type Introspector interface {
	ListTables(ctx context.Context, includeSystem bool) ([]string, error)
	TableSchema(ctx context.Context, tableName string) ([]db.Column, error)
}

// ColumnDescriptor describes one column of a table
type ColumnDescriptor struct {
	Name         string
	DeclaredType string
	IsPrimaryKey bool
}

// TableSchema is the ordered column list of a single table
type TableSchema struct {
	TableName string
	Columns   []ColumnDescriptor
}

// PrimaryKeys returns the names of the primary key columns
func (t TableSchema) PrimaryKeys() []string {
	var keys []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

type propKey struct {
	table, column string
	prop          Property
}

// Catalog is a lazily populated schema cache bound to one connection.
// Once loaded it is authoritative until Invalidate is called.
type Catalog struct {
	conn          Introspector
	includeSystem bool
	logger        *slog.Logger

	mu     sync.Mutex
	loaded bool
	tables []TableSchema
	props  map[propKey]string
}

// Option configures a Catalog
type Option func(*Catalog)

// WithSystemTables includes system tables in introspection
func WithSystemTables(include bool) Option {
	return func(c *Catalog) { c.includeSystem = include }
}

// WithLogger sets the logger used to report per-table failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// NewCatalog creates an empty catalog for conn
func NewCatalog(conn Introspector, opts ...Option) *Catalog {
	c := &Catalog{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Introspect returns every table's schema, loading it on first use.
// If the table list cannot be read the result is empty and the error
// wraps db.ErrSchemaUnavailable. Tables whose metadata query fails are
// logged and left out.
func (c *Catalog) Introspect(ctx context.Context) ([]TableSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.tables, nil
	}

	names, err := c.conn.ListTables(ctx, c.includeSystem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrSchemaUnavailable, err)
	}

	type loaded struct {
		cols []db.Column
		ok   bool
	}
	results := make([]loaded, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(introspectLimit)
	for i, name := range names {
		g.Go(func() error {
			cols, err := c.conn.TableSchema(gctx, name)
			if err != nil {
				c.logger.Warn("table introspection failed, omitting table",
					slog.String("table", name), slog.Any("error", err))
				return nil
			}
			results[i] = loaded{cols: cols, ok: true}
			return nil
		})
	}
	// goroutines never return errors; failures are per-table
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	props := make(map[propKey]string)
	tables := make([]TableSchema, 0, len(names))
	for i, r := range results {
		if !r.ok {
			continue
		}
		ts := TableSchema{TableName: names[i], Columns: make([]ColumnDescriptor, 0, len(r.cols))}
		for _, col := range r.cols {
			ts.Columns = append(ts.Columns, ColumnDescriptor{
				Name:         col.Name,
				DeclaredType: col.Type,
				IsPrimaryKey: col.IsPrimaryKey(),
			})
			props[propKey{ts.TableName, col.Name, PropType}] = col.Type
			props[propKey{ts.TableName, col.Name, PropPrimaryKey}] = strconv.Itoa(col.PKRank)
			props[propKey{ts.TableName, col.Name, PropNullable}] = strconv.FormatBool(col.Nullable)
			props[propKey{ts.TableName, col.Name, PropDefault}] = col.Default
		}
		tables = append(tables, ts)
	}

	c.tables = tables
	c.props = props
	c.loaded = true
	c.logger.Debug("schema loaded", slog.Int("tables", len(tables)), slog.Int("listed", len(names)))
	return c.tables, nil
}

// PropertyOf returns a cached column attribute, loading the catalog if
// needed. The second result is false for unknown tables, columns or
// properties, and when the schema could not be loaded.
func (c *Catalog) PropertyOf(ctx context.Context, table, column string, prop Property) (string, bool) {
	if _, err := c.Introspect(ctx); err != nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.props[propKey{table, column, prop}]
	return v, ok
}

// IsPrimaryKey reports whether table.column is part of the primary key
func (c *Catalog) IsPrimaryKey(ctx context.Context, table, column string) bool {
	v, ok := c.PropertyOf(ctx, table, column, PropPrimaryKey)
	if !ok {
		return false
	}
	rank, err := strconv.Atoi(v)
	return err == nil && rank > 0
}

// Table returns the schema of one table
func (c *Catalog) Table(ctx context.Context, name string) (TableSchema, bool) {
	tables, err := c.Introspect(ctx)
	if err != nil {
		return TableSchema{}, false
	}
	for _, t := range tables {
		if t.TableName == name {
			return t, true
		}
	}
	return TableSchema{}, false
}

// TableNames returns the introspected table names in enumeration order
func (c *Catalog) TableNames(ctx context.Context) []string {
	tables, _ := c.Introspect(ctx)
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.TableName
	}
	return names
}

// Loaded reports whether the cache is populated
func (c *Catalog) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Invalidate drops the cache. Call it when the connection changes.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.tables = nil
	c.props = nil
}

// Reset invalidates the cache and binds it to a new connection
func (c *Catalog) Reset(conn Introspector) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.Invalidate()
}
