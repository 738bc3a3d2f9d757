package table

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	bbtable "github.com/evertras/bubble-table/table"

	"github.com/nhath/dbscope/internal/db"
)

// Nord colors
const (
	ColorForeground = "#D8DEE9" // Nord4: Light gray
	ColorComment    = "#4C566A" // Nord3: Dark gray
	ColorGreen      = "#A3BE8C" // Nord14: Green
	ColorOrange     = "#D08770" // Nord12: Orange
	ColorPurple     = "#B48EAD" // Nord15: Purple
	ColorYellow     = "#EBCB8B" // Nord13: Yellow
	ColorTeal       = "#8FBCBB" // Nord7: Teal
)

// MaxColumnWidth caps the width of a single column
const MaxColumnWidth = 40

// rowIndexKey stores the source row index in each table row
const rowIndexKey = "__row"

// New creates a bubble-table with the Nord look
func New(cols []bbtable.Column) bbtable.Model {
	return bbtable.New(cols).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorForeground))).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorTeal)).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGreen)).
			Bold(true)).
		BorderRounded()
}

// VisibleColumns returns the names whose hidden flag is not set
func VisibleColumns(columns []string, hidden map[string]bool) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// FromResult builds a table over res showing only the columns not marked
// hidden. Hidden columns stay in the row data so references can still be
// read from them.
func FromResult(res *db.QueryResult, hidden map[string]bool, pageSize int) bbtable.Model {
	if res == nil {
		return New(nil)
	}

	visible := VisibleColumns(res.Columns, hidden)
	widths := columnWidths(res.Columns, res.Rows)
	cols := make([]bbtable.Column, 0, len(visible))
	for _, c := range visible {
		cols = append(cols, bbtable.NewColumn(c, c, min(widths[c], MaxColumnWidth)))
	}

	rows := make([]bbtable.Row, 0, len(res.Rows))
	for i, r := range res.Rows {
		data := bbtable.RowData{rowIndexKey: i}
		for j, val := range r {
			data[res.Columns[j]] = bbtable.NewStyledCell(val, ValueStyle(val))
		}
		rows = append(rows, bbtable.NewRow(data))
	}

	footer := fmt.Sprintf("%d rows", res.RowCount)
	if res.Truncated {
		footer += " (truncated)"
	}
	if n := len(res.Columns) - len(visible); n > 0 {
		footer += fmt.Sprintf(", %d hidden columns", n)
	}

	t := New(cols).WithRows(rows).WithStaticFooter(footer)
	if pageSize > 0 {
		t = t.WithPageSize(pageSize)
	}
	return t
}

// SelectedRow returns the source row index of the highlighted row
func SelectedRow(t bbtable.Model) (int, bool) {
	row := t.HighlightedRow()
	if row.Data == nil {
		return 0, false
	}
	i, ok := row.Data[rowIndexKey].(int)
	return i, ok
}

func columnWidths(headers []string, rows [][]string) map[string]int {
	widths := make(map[string]int, len(headers))
	for _, h := range headers {
		widths[h] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, val := range row {
			if i < len(headers) {
				widths[headers[i]] = max(widths[headers[i]], lipgloss.Width(val))
			}
		}
	}
	for h := range widths {
		widths[h] += 2
	}
	return widths
}

// ValueStyle returns a style based on what a value looks like
func ValueStyle(val string) lipgloss.Style {
	if val == "" || strings.EqualFold(val, "NULL") {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorComment)).Italic(true)
	}
	if _, err := fmt.Sscanf(val, "%f", new(float64)); err == nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPurple))
	}
	if lower := strings.ToLower(val); lower == "true" || lower == "false" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow))
}
