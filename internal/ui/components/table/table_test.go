package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhath/dbscope/internal/db"
)

func people() *db.QueryResult {
	return &db.QueryResult{
		Columns:  []string{"id", "firstname", "lastname", "age"},
		Rows:     [][]string{{"1001", "Bart", "Simpson", "9"}, {"1002", "Maggie", "Simpson", "6"}},
		RowCount: 2,
	}
}

func TestVisibleColumns(t *testing.T) {
	cols := []string{"id", "firstname", "lastname"}
	assert.Equal(t, cols, VisibleColumns(cols, nil))
	assert.Equal(t, []string{"firstname"}, VisibleColumns(cols, map[string]bool{"id": true, "lastname": true}))
	assert.Empty(t, VisibleColumns(cols, map[string]bool{"id": true, "firstname": true, "lastname": true}))
}

func TestFromResult_HidesColumns(t *testing.T) {
	view := FromResult(people(), map[string]bool{"lastname": true}, 10).View()
	assert.Contains(t, view, "firstname")
	assert.Contains(t, view, "Maggie")
	assert.NotContains(t, view, "Simpson")
}

func TestFromResult_Footer(t *testing.T) {
	res := people()
	res.Truncated = true
	view := FromResult(res, nil, 0).View()
	assert.Contains(t, view, "2 rows (truncated)")
	assert.Contains(t, view, "Simpson")
}

func TestSelectedRow(t *testing.T) {
	i, ok := SelectedRow(FromResult(people(), map[string]bool{"id": true}, 10))
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = SelectedRow(FromResult(&db.QueryResult{Columns: []string{"a"}}, nil, 10))
	assert.False(t, ok)

	_, ok = SelectedRow(FromResult(nil, nil, 10))
	assert.False(t, ok)
}
