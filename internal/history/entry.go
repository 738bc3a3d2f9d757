// internal/history/entry.go
package history

import "time"

// Entry is one validation that reached the database
type Entry struct {
	ID           int64
	Source       string // connection label, e.g. a profile name or file path
	Query        string
	Status       string
	RowCount     int
	ErrorMessage string
	ExecutedAt   time.Time
	DurationMs   int64
}

// QueryPreview returns a truncated version of the query
func (e *Entry) QueryPreview(maxLen int) string {
	q := e.Query
	if len(q) > maxLen && maxLen > 3 {
		return q[:maxLen-3] + "..."
	}
	return q
}
