// internal/ui/styles.go
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/dbscope/internal/config"
)

var (
	textPrimary    lipgloss.Color
	textSecondary  lipgloss.Color
	textFaint      lipgloss.Color
	accentColor    lipgloss.Color
	successColor   lipgloss.Color
	errorColor     lipgloss.Color
	highlightColor lipgloss.Color
	warningColor   lipgloss.Color
	bgPrimary      lipgloss.Color
	bgSecondary    lipgloss.Color

	StatusBarStyle lipgloss.Style
	BadgeStyle     lipgloss.Style
	InputStyle     lipgloss.Style
	FocusedStyle   lipgloss.Style
	PopupStyle     lipgloss.Style
	TitleStyle     lipgloss.Style
	MetaStyle      lipgloss.Style
	BannerStyle    lipgloss.Style
	ErrorStyle     lipgloss.Style
	SpanStyle      lipgloss.Style
)

// InitStyles initializes the global styles from the configured theme
func InitStyles(theme config.Theme) {
	textPrimary = lipgloss.Color(theme.TextPrimary)
	textSecondary = lipgloss.Color(theme.TextSecondary)
	textFaint = lipgloss.Color(theme.TextFaint)
	accentColor = lipgloss.Color(theme.Accent)
	successColor = lipgloss.Color(theme.Success)
	errorColor = lipgloss.Color(theme.Error)
	highlightColor = lipgloss.Color(theme.Highlight)
	warningColor = lipgloss.Color(theme.Warning)
	bgPrimary = lipgloss.Color(theme.BgPrimary)
	bgSecondary = lipgloss.Color(theme.BgSecondary)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(textPrimary).
		Background(bgSecondary)

	BadgeStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(bgPrimary)

	InputStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(textFaint).
		Padding(0, 1)

	FocusedStyle = InputStyle.BorderForeground(accentColor)

	PopupStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlightColor).
		Background(bgPrimary).
		Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor)

	MetaStyle = lipgloss.NewStyle().
		Foreground(textSecondary)

	BannerStyle = lipgloss.NewStyle().
		Background(successColor).
		Foreground(bgPrimary).
		Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
		Background(errorColor).
		Foreground(textPrimary).
		Padding(0, 1)

	SpanStyle = lipgloss.NewStyle().
		Background(highlightColor).
		Foreground(bgPrimary)
}

// statusColor picks the badge colour for a validation status name
func statusColor(status string) lipgloss.Color {
	switch status {
	case "valid":
		return successColor
	case "invalid-empty":
		return warningColor
	case "invalid":
		return errorColor
	default:
		return textFaint
	}
}

func init() {
	InitStyles(config.DefaultConfig().Theme)
}
