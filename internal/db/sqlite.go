// internal/db/sqlite.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver implements Driver for SQLite
type SQLiteDriver struct {
	sqlConn
}

// Connect establishes connection to SQLite
func (d *SQLiteDriver) Connect(params ConnectParams) error {
	// For SQLite, the database string is the filepath
	dsn := strings.TrimPrefix(params.Database, "sqlite://")
	if dsn == "" {
		return WrapConnectionError(fmt.Errorf("sqlite: empty database path"))
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return WrapConnectionError(err)
	}

	// An in-memory database exists per connection, so pin the pool to one
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return WrapConnectionError(fmt.Errorf("pragma foreign_keys: %w", err))
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return WrapConnectionError(fmt.Errorf("pragma busy_timeout: %w", err))
	}

	d.db = db
	return nil
}

// Close closes the database connection
func (d *SQLiteDriver) Close() error {
	return d.close()
}

// Type returns the driver type
func (d *SQLiteDriver) Type() DriverType {
	return SQLite
}

// ListTables returns tables in creation order
func (d *SQLiteDriver) ListTables(ctx context.Context, includeSystem bool) ([]string, error) {
	query := "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid"
	if includeSystem {
		query = "SELECT name FROM sqlite_master WHERE type='table' ORDER BY rowid"
	}
	return d.queryStrings(ctx, query)
}

// TableSchema returns column metadata for a table via PRAGMA table_info
func (d *SQLiteDriver) TableSchema(ctx context.Context, tableName string) ([]Column, error) {
	if d.db == nil {
		return nil, WrapConnectionError(fmt.Errorf("not connected"))
	}
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(tableName))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return nil, WrapQueryError(err)
		}

		columns = append(columns, Column{
			Name:     name,
			Type:     dataType,
			Nullable: notNull == 0,
			Default:  dfltValue.String,
			PKRank:   pk,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, WrapQueryError(err)
	}
	// PRAGMA table_info on an unknown table yields no rows rather than an error
	if len(columns) == 0 {
		return nil, WrapQueryError(fmt.Errorf("no such table: %s", tableName))
	}
	return columns, nil
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
