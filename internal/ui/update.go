package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/dbscope/internal/ui/components/table"
	"github.com/nhath/dbscope/internal/validate"
	"github.com/nhath/dbscope/internal/xref"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(msg.Width - 4)
		m.help.Width = msg.Width
		m = m.layout()
		return m.refreshGrid(), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case DebounceMsg:
		if msg.ID != m.debounceID {
			return m, nil
		}
		return m, m.validateCmd(m.editor.Value())

	case ValidatedMsg:
		if msg.Outcome.Superseded || !msg.Outcome.Applied {
			return m, nil
		}
		return m.refreshGrid(), nil

	case ResolvedMsg:
		if msg.Err != nil {
			return m.setBanner(msg.Err.Error(), true)
		}
		return m.openPreview(msg.Resolution), nil

	case HistoryLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case clearBannerMsg:
		if msg.ID == m.bannerID {
			m.banner = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Exit):
		return m, tea.Quit
	case m.showHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Close) {
			m.showHelp = false
		}
		return m, nil
	case m.showColumns:
		return m.handleColumnPicker(msg)
	case m.showHistory:
		return m.handleHistoryKey(msg)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Columns):
		if len(m.display.current().hidden) == 0 {
			return m.setBanner("no columns to show or hide", false)
		}
		m.showColumns = true
		m.columnCursor = 0
		return m, nil
	case key.Matches(msg, m.keys.History):
		return m.openHistory()
	case key.Matches(msg, m.keys.ToggleValidate):
		if len(m.queries) == 0 {
			return m.setBanner(noQueriesBanner, true)
		}
		return m, m.toggleCmd()
	case key.Matches(msg, m.keys.NextQuery):
		return m.nextQuery()
	case key.Matches(msg, m.keys.SwitchFocus):
		return m.cycleFocus(), nil
	case key.Matches(msg, m.keys.Close) && m.previewing:
		m.previewing = false
		if m.focus == FocusPreview {
			m = m.setFocus(FocusResults)
		}
		return m.layout(), nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusResults:
		if key.Matches(msg, m.keys.OpenReference) {
			return m.openReference()
		}
		m.grid, cmd = m.grid.Update(msg)
	case FocusPreview:
		m.preview, cmd = m.preview.Update(msg)
	default:
		m.editor, cmd = m.editor.Update(msg)
		if text := m.editor.Value(); text != m.lastText {
			m.lastText = text
			return m, tea.Batch(cmd, m.debounce())
		}
	}
	return m, cmd
}

// debounce schedules a validation once typing pauses; earlier schedules are
// dropped when they fire with a stale ID
func (m *Model) debounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(m.config.ValidateDelay.Duration, func(time.Time) tea.Msg {
		return DebounceMsg{ID: id}
	})
}

func (m Model) validateCmd(text string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return ValidatedMsg{Outcome: engine.Validate(ctx, text)}
	}
}

func (m Model) toggleCmd() tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return ValidatedMsg{Outcome: engine.SetEnabled(ctx, !engine.Enabled())}
	}
}

func (m Model) nextQuery() (tea.Model, tea.Cmd) {
	if len(m.queries) == 0 {
		return m.setBanner("no named queries", false)
	}
	m.queryIdx = (m.queryIdx + 1) % len(m.queries)
	q := m.queries[m.queryIdx]
	m.editor.SetValue(q.Query)
	m.lastText = q.Query
	// a pending debounce would re-run the old text
	m.debounceID++
	m, bannerCmd := m.setBanner(fmt.Sprintf("loaded %q", q.Name), false)
	return m, tea.Batch(m.validateCmd(q.Query), bannerCmd)
}

func (m Model) handleColumnPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.pickerColumns()
	switch {
	case key.Matches(msg, m.keys.Close, m.keys.Columns):
		m.showColumns = false
	case key.Matches(msg, m.keys.Up):
		if m.columnCursor > 0 {
			m.columnCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.columnCursor < len(cols)-1 {
			m.columnCursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.columnCursor < len(cols) {
			m.vis.Toggle(cols[m.columnCursor])
			return m.refreshGrid(), nil
		}
	}
	return m, nil
}

// pickerColumns lists the displayed result's columns in result order
func (m Model) pickerColumns() []string {
	if res := m.display.current().result; res != nil {
		return res.Columns
	}
	return nil
}

func (m Model) openReference() (tea.Model, tea.Cmd) {
	cur := m.display.current()
	if cur.result == nil {
		return m, nil
	}
	idx, ok := table.SelectedRow(m.grid)
	if !ok {
		return m, nil
	}
	file, line, ok := xref.ExtractRef(cur.result.RowMap(idx))
	if !ok {
		return m.setBanner("row has no file/line reference", true)
	}
	locator := m.locator
	return m, func() tea.Msg {
		res, err := locator.Resolve(file, line)
		return ResolvedMsg{Resolution: res, Err: err}
	}
}

func (m Model) openPreview(res xref.Resolution) Model {
	m.previewing = true
	m.previewTitle = fmt.Sprintf("%s:%d", filepath.Base(res.Path), res.Line)
	m = m.layout()
	m.preview.SetContent(renderSource(res))
	startLine := strings.Count(res.Content[:res.Start], "\n")
	m.preview.SetYOffset(max(0, startLine-2))
	return m.setFocus(FocusPreview)
}

func (m Model) cycleFocus() Model {
	next := (m.focus + 1) % 3
	if next == FocusPreview && !m.previewing {
		next = FocusEditor
	}
	return m.setFocus(next)
}

func (m Model) setFocus(f Focus) Model {
	m.focus = f
	if f == FocusEditor {
		m.editor.Focus()
	} else {
		m.editor.Blur()
	}
	m.grid = m.grid.Focused(f == FocusResults)
	return m
}

// setBanner shows a transient message that clears after status_duration
func (m Model) setBanner(text string, isErr bool) (Model, tea.Cmd) {
	m.bannerID++
	id := m.bannerID
	m.banner, m.bannerErr = text, isErr
	return m, tea.Tick(m.config.StatusDuration.Duration, func(time.Time) tea.Msg {
		return clearBannerMsg{ID: id}
	})
}

// refreshGrid rebuilds the results table from what the engine displays
func (m Model) refreshGrid() Model {
	cur := m.display.current()
	m.grid = table.FromResult(cur.result, cur.hidden, m.pageSize()).
		Focused(m.focus == FocusResults).
		WithTargetWidth(max(m.width, 20))
	if n := len(m.pickerColumns()); m.columnCursor >= n {
		m.columnCursor = max(0, n-1)
	}
	return m
}

// layout sizes the preview pane from the window size
func (m Model) layout() Model {
	m.preview.Width = max(m.width-4, 10)
	m.preview.Height = max(m.height/3, 5)
	return m
}

func (m Model) pageSize() int {
	avail := m.height - 12
	if m.previewing {
		avail -= m.preview.Height + 2
	}
	return max(avail, 3)
}

// statusLabel names a validation status for the status bar
func statusLabel(s validate.Status, enabled bool) string {
	if !enabled {
		return "OFF"
	}
	switch s {
	case validate.Valid:
		return "VALID"
	case validate.InvalidEmpty:
		return "EMPTY"
	case validate.Invalid:
		return "INVALID"
	default:
		return "OFF"
	}
}
