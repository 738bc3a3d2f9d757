package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqlConn holds the database/sql plumbing shared by every driver.
// Concrete drivers embed it and add dialect-specific introspection.
type sqlConn struct {
	db *sql.DB
}

// Probe runs a read-only query, stopping after maxRows rows
func (c *sqlConn) Probe(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	if c.db == nil {
		return nil, WrapConnectionError(fmt.Errorf("not connected"))
	}
	if !IsReadOnly(query) {
		return nil, WrapQueryError(fmt.Errorf("statement is not read-only"))
	}
	return executeSelect(ctx, c.db, query, maxRows, time.Now())
}

// Exec runs a statement with bind parameters
func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) error {
	if c.db == nil {
		return WrapConnectionError(fmt.Errorf("not connected"))
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return WrapQueryError(err)
	}
	return nil
}

// Ping checks if database is reachable
func (c *sqlConn) Ping(ctx context.Context) error {
	if c.db == nil {
		return WrapConnectionError(fmt.Errorf("not connected"))
	}
	if err := c.db.PingContext(ctx); err != nil {
		return WrapConnectionError(err)
	}
	return nil
}

func (c *sqlConn) close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// queryStrings runs a query whose rows hold a single string column
func (c *sqlConn) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	if c.db == nil {
		return nil, WrapConnectionError(fmt.Errorf("not connected"))
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, WrapQueryError(err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapQueryError(err)
	}
	return out, nil
}

// executeSelect executes a SELECT query, reading at most limit rows when limit > 0
func executeSelect(ctx context.Context, db *sql.DB, query string, limit int, start time.Time) (*QueryResult, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, WrapQueryError(err)
	}
	var results [][]string
	truncated := false

	for rows.Next() {
		if limit > 0 && len(results) >= limit {
			truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, WrapQueryError(err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, WrapQueryError(err)
	}

	return &QueryResult{
		Columns:   columns,
		Rows:      results,
		ExecTime:  time.Since(start),
		RowCount:  len(results),
		Truncated: truncated,
	}, nil
}
