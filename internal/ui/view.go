package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/nhath/dbscope/internal/ui/highlight"
	"github.com/nhath/dbscope/internal/ui/icons"
	"github.com/nhath/dbscope/internal/xref"
)

// View renders the screen
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	editorStyle := InputStyle
	if m.focus == FocusEditor {
		editorStyle = FocusedStyle
	}
	sections := []string{
		editorStyle.Width(m.width - 2).Render(m.editor.View()),
		m.renderResults(),
	}
	if m.previewing {
		sections = append(sections, m.renderPreview())
	}
	sections = append(sections, m.renderStatusBar(), MetaStyle.Render(m.help.View(m.keys)))
	main := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.showColumns {
		main = overlay.Composite(m.renderColumnPicker(), main, overlay.Center, overlay.Center, 0, 0)
	}
	if m.showHistory {
		main = overlay.Composite(m.renderHistoryPopup(), main, overlay.Center, overlay.Center, 0, 0)
	}
	if m.showHelp {
		main = overlay.Composite(m.renderHelpPopup(), main, overlay.Center, overlay.Center, 0, 0)
	}
	return main
}

func (m Model) renderResults() string {
	cur := m.display.current()
	if cur.result == nil {
		return MetaStyle.Padding(1, 2).Render("No results yet.")
	}
	if len(cur.result.Columns) > 0 && len(cur.hidden) == len(cur.result.Columns) {
		allHidden := true
		for _, h := range cur.hidden {
			allHidden = allHidden && h
		}
		if allHidden {
			return MetaStyle.Padding(1, 2).Render("All columns are hidden. Press " + m.keys.Columns.Help().Key + " to show some.")
		}
	}
	return m.grid.View()
}

func (m Model) renderPreview() string {
	style := InputStyle
	if m.focus == FocusPreview {
		style = FocusedStyle
	}
	title := TitleStyle.Render(m.previewTitle) + MetaStyle.Render("  esc to close")
	return style.Width(m.width - 2).Render(title + "\n" + m.preview.View())
}

// renderSource colours a resolved file and marks its block
func renderSource(res xref.Resolution) string {
	return highlight.Source(res.Path, res.Content, res.Start, res.End, SpanStyle)
}

func (m Model) renderStatusBar() string {
	cur := m.display.current()
	enabled := m.engine.Enabled()

	var parts []string
	label := statusLabel(cur.status, enabled)
	parts = append(parts, BadgeStyle.Background(statusColor(cur.status.String())).Render(label))

	if m.source != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(textSecondary).Padding(0, 1).Render(icons.Database(m.dbType)+" "+m.source))
	}
	if name := m.currentQueryName(); name != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(accentColor).Padding(0, 1).
			Render(fmt.Sprintf("%s [%d/%d]", name, m.queryIdx+1, len(m.queries))))
	}

	if enabled && cur.err != nil {
		parts = append(parts, ErrorStyle.Render(icons.IconError+" "+limitString(firstLine(cur.err.Error()), 60)))
	}
	if m.banner != "" {
		style, icon := BannerStyle, icons.IconSuccess
		if m.bannerErr {
			style, icon = ErrorStyle, icons.IconError
		}
		parts = append(parts, style.Render(icon+" "+limitString(m.banner, 60)))
	}

	return StatusBarStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Left, parts...))
}

func (m Model) renderColumnPicker() string {
	cur := m.display.current()
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Columns"))
	b.WriteString("\n\n")
	for i, c := range m.pickerColumns() {
		mark := "[x]"
		if cur.hidden[c] {
			mark = "[ ]"
		}
		line := fmt.Sprintf("%s %s", mark, c)
		if i == m.columnCursor {
			line = TitleStyle.Render(icons.IconSelect + " " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + MetaStyle.Render("space toggle • esc close"))
	return PopupStyle.Render(b.String())
}

func (m Model) renderHelpPopup() string {
	title := TitleStyle.Render("Keyboard Shortcuts")
	body := m.help.FullHelpView(m.keys.FullHelp())
	return PopupStyle.Render(title + "\n\n" + body)
}

func limitString(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
