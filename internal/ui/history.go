package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/dbscope/internal/history"
	"github.com/nhath/dbscope/internal/ui/icons"
)

// HistoryLimit is the number of entries shown in the history popup
const HistoryLimit = 15

// HistoryLister reads recorded validations, newest first
type HistoryLister interface {
	List(source string, limit, offset int) ([]history.Entry, error)
	Search(source, substr string, limit int) ([]history.Entry, error)
	Count(source string) (int, error)
}

// HistoryLoadedMsg carries entries for the history popup
type HistoryLoadedMsg struct {
	Filter  string
	Entries []history.Entry
	Total   int
	Err     error
}

func (m Model) loadHistoryCmd(filter string) tea.Cmd {
	lister, source := m.history, m.source
	return func() tea.Msg {
		var (
			entries []history.Entry
			err     error
		)
		if filter == "" {
			entries, err = lister.List(source, HistoryLimit, 0)
		} else {
			entries, err = lister.Search(source, filter, HistoryLimit)
		}
		if err != nil {
			return HistoryLoadedMsg{Filter: filter, Err: err}
		}
		total, err := lister.Count(source)
		return HistoryLoadedMsg{Filter: filter, Entries: entries, Total: total, Err: err}
	}
}

func (m Model) openHistory() (tea.Model, tea.Cmd) {
	if m.history == nil {
		return m.setBanner("history is not recorded", false)
	}
	m.historyFilter = ""
	return m, m.loadHistoryCmd("")
}

func (m Model) handleHistoryLoaded(msg HistoryLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.logger.Warn("failed to load history", "error", msg.Err)
		m.showHistory = false
		return m.setBanner("history: "+msg.Err.Error(), true)
	}
	if m.showHistory {
		// a reply for an older filter
		if msg.Filter != m.historyFilter {
			return m, nil
		}
	} else if len(msg.Entries) == 0 {
		return m.setBanner("no recorded validations yet", false)
	}
	m.historyEntries = msg.Entries
	m.historyTotal = msg.Total
	m.historyCursor = 0
	m.showHistory = true
	return m, nil
}

// handleHistoryKey moves with the arrow keys; typed text narrows the list
func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close, m.keys.History):
		m.showHistory = false
		m.historyFilter = ""
	case msg.Type == tea.KeyUp:
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case msg.Type == tea.KeyDown:
		if m.historyCursor < len(m.historyEntries)-1 {
			m.historyCursor++
		}
	case key.Matches(msg, m.keys.OpenReference):
		if len(m.historyEntries) == 0 {
			return m, nil
		}
		q := m.historyEntries[m.historyCursor].Query
		m.showHistory = false
		m.historyFilter = ""
		m.editor.SetValue(q)
		m.lastText = q
		m.debounceID++
		return m, m.validateCmd(q)
	case msg.Type == tea.KeyBackspace:
		if m.historyFilter == "" {
			return m, nil
		}
		r := []rune(m.historyFilter)
		m.historyFilter = string(r[:len(r)-1])
		return m, m.loadHistoryCmd(m.historyFilter)
	case msg.Type == tea.KeyRunes, msg.Type == tea.KeySpace:
		m.historyFilter += string(msg.Runes)
		if msg.Type == tea.KeySpace {
			m.historyFilter += " "
		}
		return m, m.loadHistoryCmd(m.historyFilter)
	}
	return m, nil
}

func (m Model) renderHistoryPopup() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Recent validations"))
	if m.historyFilter != "" {
		b.WriteString(MetaStyle.Render("  filter: " + m.historyFilter))
	}
	b.WriteString("\n\n")
	width := max(m.width/2, 30)
	if len(m.historyEntries) == 0 {
		b.WriteString(MetaStyle.Render("  no matches") + "\n")
	}
	for i, e := range m.historyEntries {
		icon := lipgloss.NewStyle().Foreground(statusColor(e.Status)).Render(statusIcon(e.Status))
		meta := MetaStyle.Render(fmt.Sprintf("%s  %dms  %d rows", e.ExecutedAt.Format("15:04:05"), e.DurationMs, e.RowCount))
		line := fmt.Sprintf("%s %s", icon, e.QueryPreview(width))
		if i == m.historyCursor {
			line = TitleStyle.Render(icons.IconSelect) + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n    " + meta + "\n")
	}
	footer := fmt.Sprintf("%d of %d • type to filter • enter load • esc close", len(m.historyEntries), m.historyTotal)
	b.WriteString("\n" + MetaStyle.Render(footer))
	return PopupStyle.Render(b.String())
}

func statusIcon(status string) string {
	switch status {
	case "valid":
		return icons.IconSuccess
	case "invalid", "invalid-empty":
		return icons.IconError
	default:
		return "·"
	}
}
