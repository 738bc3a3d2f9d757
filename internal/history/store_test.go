package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/dbscope/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStoreAt(filepath.Join(t.TempDir(), "history.db"), testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AddListSearch(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	entries := []*Entry{
		{Source: "test.db", Query: "SELECT * FROM person", Status: "valid", RowCount: 2, ExecutedAt: now.Add(-2 * time.Second)},
		{Source: "test.db", Query: "SELECT * FROM nosuchtable", Status: "invalid", ErrorMessage: "no such table", ExecutedAt: now.Add(-time.Second)},
		{Source: "other.db", Query: "SELECT 1", Status: "valid", RowCount: 1, ExecutedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, s.Add(e))
		assert.NotZero(t, e.ID)
	}

	list, err := s.List("test.db", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SELECT * FROM nosuchtable", list[0].Query)
	assert.Equal(t, "no such table", list[0].ErrorMessage)
	assert.Equal(t, 2, list[1].RowCount)

	found, err := s.Search("test.db", "person", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "valid", found[0].Status)

	n, err := s.Count("other.db")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	none, err := s.Search("test.db", "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEntry_QueryPreview(t *testing.T) {
	e := &Entry{Query: "SELECT * FROM person WHERE age > 5"}
	assert.Equal(t, "SELECT ...", e.QueryPreview(10))
	assert.Equal(t, e.Query, e.QueryPreview(100))
}
