// internal/db/mysql.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDriver implements Driver for MySQL
type MySQLDriver struct {
	sqlConn
	tunnel  *SSHTunnel
	netName string // Registered network name for SSH
}

// Connect establishes connection to MySQL
func (d *MySQLDriver) Connect(params ConnectParams) error {
	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", params.Host, params.Port)
	cfg.DBName = params.Database
	cfg.ParseTime = true

	if params.SSHConfig != nil && params.SSHConfig.Host != "" {
		tunnel, err := NewSSHTunnel(params.SSHConfig, params.Logger)
		if err != nil {
			return WrapConnectionError(fmt.Errorf("failed to create SSH tunnel: %w", err))
		}
		d.tunnel = tunnel

		// Each tunnel gets its own dial network so connections do not collide
		d.netName = fmt.Sprintf("mysql+ssh+%d", time.Now().UnixNano())
		mysql.RegisterDialContext(d.netName, func(ctx context.Context, addr string) (net.Conn, error) {
			return tunnel.DialContext(ctx, "tcp", addr)
		})
		cfg.Net = d.netName
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		d.Close()
		return WrapConnectionError(err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	// sql.OpenDB is lazy, so verify now
	if err := db.Ping(); err != nil {
		db.Close()
		d.Close()
		return WrapConnectionError(err)
	}

	d.db = db
	return nil
}

// Close closes the database connection and SSH tunnel
func (d *MySQLDriver) Close() error {
	dbErr := d.close()
	if d.tunnel != nil {
		err := d.tunnel.Close()
		d.tunnel = nil
		if err != nil {
			if dbErr != nil {
				return fmt.Errorf("db close err: %v, tunnel close err: %w", dbErr, err)
			}
			return err
		}
	}
	// The registered dial network cannot be removed from the driver; it is small
	return dbErr
}

// Type returns the driver type
func (d *MySQLDriver) Type() DriverType {
	return MySQL
}

// ListTables returns tables in the current database
func (d *MySQLDriver) ListTables(ctx context.Context, includeSystem bool) ([]string, error) {
	if includeSystem {
		return d.queryStrings(ctx, `
			SELECT CONCAT(table_schema, '.', table_name)
			FROM information_schema.tables
			ORDER BY table_schema, create_time`)
	}
	return d.queryStrings(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY create_time, table_name`)
}

// TableSchema returns column metadata for a table
func (d *MySQLDriver) TableSchema(ctx context.Context, tableName string) ([]Column, error) {
	if d.db == nil {
		return nil, WrapConnectionError(fmt.Errorf("not connected"))
	}
	query := `
		SELECT
			c.COLUMN_NAME,
			c.COLUMN_TYPE,
			c.IS_NULLABLE = 'YES',
			IFNULL(c.COLUMN_DEFAULT, ''),
			IFNULL(k.ORDINAL_POSITION, 0)
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
			ON k.TABLE_SCHEMA = c.TABLE_SCHEMA
			AND k.TABLE_NAME = c.TABLE_NAME
			AND k.COLUMN_NAME = c.COLUMN_NAME
			AND k.CONSTRAINT_NAME = 'PRIMARY'
		WHERE c.TABLE_NAME = ? AND c.TABLE_SCHEMA = DATABASE()
		ORDER BY c.ORDINAL_POSITION`

	rows, err := d.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default, &col.PKRank); err != nil {
			return nil, WrapQueryError(err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapQueryError(err)
	}
	return columns, nil
}
