package db

import (
	"context"
	"fmt"
	"strings"
)

// Person is a row of the person fixture table
type Person struct {
	ID        int
	FirstName string
	LastName  string
	Age       int
}

// DefaultPeople are the rows SeedPeople inserts when none are given
var DefaultPeople = []Person{
	{ID: 1001, FirstName: "Bart", LastName: "Simpson", Age: 9},
	{ID: 1002, FirstName: "Maggie", LastName: "Simpson", Age: 6},
}

// SeedPeople creates the person fixture table and inserts rows keyed by id.
// Rows whose id already exists are left untouched, so seeding twice is harmless.
func SeedPeople(ctx context.Context, d Driver, people ...Person) error {
	if len(people) == 0 {
		people = DefaultPeople
	}

	create := `CREATE TABLE IF NOT EXISTS person (
		id INTEGER PRIMARY KEY,
		firstname VARCHAR(20),
		lastname VARCHAR(30),
		age INTEGER)`
	if err := d.Exec(ctx, create); err != nil {
		return fmt.Errorf("create person: %w", err)
	}

	insert := insertIgnore(d.Type(), "person", []string{"id", "firstname", "lastname", "age"}, "id")
	for _, p := range people {
		if err := d.Exec(ctx, insert, p.ID, p.FirstName, p.LastName, p.Age); err != nil {
			return fmt.Errorf("insert person %d: %w", p.ID, err)
		}
	}
	return nil
}

// insertIgnore builds a dialect-specific insert that skips duplicate keys
func insertIgnore(t DriverType, table string, cols []string, key string) string {
	var list, params string
	for i, c := range cols {
		if i > 0 {
			list += ", "
			params += ", "
		}
		list += c
		params += Placeholder(t, i+1)
	}
	switch t {
	case Postgres:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING", table, list, params, key)
	case MySQL:
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, list, params)
	default:
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, list, params)
	}
}

// Placeholder returns the n-th (1-based) bind parameter marker for a dialect
func Placeholder(t DriverType, n int) string {
	if t == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// QuoteIdent quotes a table or column name for a dialect, doubling any
// embedded quote character
func QuoteIdent(t DriverType, name string) string {
	if t == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
