// Package queries resolves the list of named queries offered for a
// connection: either rows of a reserved table in the database itself, or a
// single synthesized "Default" query over one of the available tables.
package queries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nhath/dbscope/internal/db"
)

// DefaultTable is the reserved table name for persisted named queries
const DefaultTable = "queries"

// DefaultName is the display name of the synthesized query
const DefaultName = "Default"

// ErrCancelled is returned by a Prompt when the user aborts the choice
var ErrCancelled = errors.New("choice cancelled")

// NamedQuery is a reusable query text with a display name
type NamedQuery struct {
	Name  string
	Query string
}

// Source is the part of a connection the catalog reads from
type Source interface {
	ListTables(ctx context.Context, includeSystem bool) ([]string, error)
	Probe(ctx context.Context, query string, maxRows int) (*db.QueryResult, error)
	Type() db.DriverType
}

// Prompt asks the user to pick one of several options
type Prompt interface {
	Choose(options []string) (string, error)
}

// PromptFunc adapts a function to Prompt
type PromptFunc func(options []string) (string, error)

func (f PromptFunc) Choose(options []string) (string, error) { return f(options) }

// FirstTable always picks the first option
var FirstTable = PromptFunc(func(options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrCancelled
	}
	return options[0], nil
})

// PreferTable picks name when it is offered and cancels otherwise, which
// makes the catalog fall back to the first table.
func PreferTable(name string) Prompt {
	return PromptFunc(func(options []string) (string, error) {
		if name != "" && slices.Contains(options, name) {
			return name, nil
		}
		return "", ErrCancelled
	})
}

// Catalog lists named queries for a connection
type Catalog struct {
	Table  string // reserved table name, DefaultTable when empty
	Logger *slog.Logger
}

// NewCatalog returns a catalog reading from the given reserved table
func NewCatalog(table string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{Table: table, Logger: logger}
}

func (c *Catalog) table() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

func (c *Catalog) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// List returns the named queries in storage order. When the reserved table
// is absent, prompt picks a table (nil or cancelled means the first one) and
// a single Default entry selecting from it is returned. A database without
// tables yields an empty list, which callers treat as "nothing to run".
func (c *Catalog) List(ctx context.Context, src Source, prompt Prompt) ([]NamedQuery, error) {
	tables, err := src.ListTables(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrSchemaUnavailable, err)
	}
	if len(tables) == 0 {
		return nil, nil
	}

	reserved := c.table()
	if slices.Contains(tables, reserved) {
		return c.readTable(ctx, src, reserved)
	}

	choice := tables[0]
	if prompt != nil {
		picked, err := prompt.Choose(tables)
		switch {
		case errors.Is(err, ErrCancelled):
			c.logger().Debug("table choice cancelled, using first table", slog.String("table", choice))
		case err != nil:
			return nil, err
		case slices.Contains(tables, picked):
			choice = picked
		}
	}
	return []NamedQuery{{Name: DefaultName, Query: "SELECT * FROM " + choice}}, nil
}

func (c *Catalog) readTable(ctx context.Context, src Source, table string) ([]NamedQuery, error) {
	res, err := src.Probe(ctx, fmt.Sprintf("SELECT name, query FROM %s", db.QuoteIdent(src.Type(), table)), 0)
	if err != nil {
		return nil, err
	}
	out := make([]NamedQuery, 0, len(res.Rows))
	for _, row := range res.RowMaps() {
		out = append(out, NamedQuery{Name: row["name"], Query: row["query"]})
	}
	return out, nil
}

// Seed creates the reserved table and inserts entries in order. It is meant
// for fixtures and demos, not for editing a user's catalog.
func Seed(ctx context.Context, d db.Driver, table string, entries ...NamedQuery) error {
	if table == "" {
		table = DefaultTable
	}
	quoted := db.QuoteIdent(d.Type(), table)
	if err := d.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (name TEXT, query TEXT)", quoted)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (name, query) VALUES (%s, %s)",
		quoted, db.Placeholder(d.Type(), 1), db.Placeholder(d.Type(), 2))
	for _, e := range entries {
		if err := d.Exec(ctx, insert, e.Name, e.Query); err != nil {
			return fmt.Errorf("insert %q: %w", e.Name, err)
		}
	}
	return nil
}
