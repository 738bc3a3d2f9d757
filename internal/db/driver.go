// internal/db/driver.go
package db

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
)

// DriverType represents supported database types
type DriverType string

const (
	Postgres DriverType = "postgres"
	MySQL    DriverType = "mysql"
	SQLite   DriverType = "sqlite"
)

// Column represents table column metadata
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
	PKRank   int // 1-based position in the primary key, 0 if not part of it
}

// IsPrimaryKey reports whether the column participates in the primary key
func (c Column) IsPrimaryKey() bool {
	return c.PKRank > 0
}

// ConnectParams holds database connection details
type ConnectParams struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	SSHConfig *SSHConfig // Optional SSH tunnel config
	Logger    *slog.Logger
}

// Driver is the connection contract the browsing core relies on.
type Driver interface {
	Connect(params ConnectParams) error
	Close() error
	Ping(ctx context.Context) error
	Type() DriverType

	// ListTables enumerates tables in storage order. System tables are
	// omitted unless includeSystem is set.
	ListTables(ctx context.Context, includeSystem bool) ([]string, error)
	// TableSchema returns column metadata for a single table.
	TableSchema(ctx context.Context, tableName string) ([]Column, error)

	// Probe runs a read-only statement, reading at most maxRows rows
	// (0 means no limit). Statements that could modify data are refused.
	Probe(ctx context.Context, query string, maxRows int) (*QueryResult, error)
	// Exec runs a parameterised statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) error
}

// QueryResult contains query execution results
type QueryResult struct {
	Columns   []string
	Rows      [][]string
	ExecTime  time.Duration
	RowCount  int
	Truncated bool // more rows were available than were read
}

// RowMap returns row i keyed by column name, or nil when out of range.
func (r *QueryResult) RowMap(i int) map[string]string {
	if r == nil || i < 0 || i >= len(r.Rows) {
		return nil
	}
	m := make(map[string]string, len(r.Columns))
	for j, c := range r.Columns {
		if j < len(r.Rows[i]) {
			m[c] = r.Rows[i][j]
		}
	}
	return m
}

// RowMaps iterates rows as column-name maps, building each map on demand.
func (r *QueryResult) RowMaps() iter.Seq2[int, map[string]string] {
	return func(yield func(int, map[string]string) bool) {
		if r == nil {
			return
		}
		for i := range r.Rows {
			if !yield(i, r.RowMap(i)) {
				return
			}
		}
	}
}

// NewDriver creates a new driver instance by type
func NewDriver(driverType DriverType) (Driver, error) {
	switch driverType {
	case Postgres:
		return &PostgresDriver{}, nil
	case MySQL:
		return &MySQLDriver{}, nil
	case SQLite:
		return &SQLiteDriver{}, nil
	default:
		return nil, fmt.Errorf("unknown driver type: %s", driverType)
	}
}

// Open creates a driver for the given type and connects it. Every failure
// is reported as a *ConnectionError.
func Open(ctx context.Context, driverType DriverType, params ConnectParams) (Driver, error) {
	d, err := NewDriver(driverType)
	if err != nil {
		return nil, WrapConnectionError(err)
	}
	if err := d.Connect(params); err != nil {
		return nil, asConnectionError(err)
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, asConnectionError(err)
	}
	return d, nil
}

// readOnlyPrefixes lists statement keywords accepted by Probe
var readOnlyPrefixes = []string{"SELECT", "WITH", "EXPLAIN", "PRAGMA", "VALUES", "SHOW", "DESCRIBE"}

// IsReadOnly reports whether a statement looks like it only reads data.
// This is a keyword check: a WITH clause wrapping a write is not detected.
func IsReadOnly(query string) bool {
	q := strings.TrimSpace(strings.ToUpper(query))
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// formatValue converts interface{} to string for display
func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}

	switch val := v.(type) {
	case []byte:
		return string(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}
