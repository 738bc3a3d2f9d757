package ui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/dbscope/internal/queries"
)

// TablePrompt asks which table the default query should read from. A
// preferred table that is offered is taken without asking.
type TablePrompt struct {
	Preferred string
	// Interactive runs a chooser on the terminal; otherwise the choice is
	// cancelled and the catalog falls back to the first table.
	Interactive bool
	Options     []tea.ProgramOption
}

// Choose implements queries.Prompt
func (p TablePrompt) Choose(options []string) (string, error) {
	if p.Preferred != "" && slices.Contains(options, p.Preferred) {
		return p.Preferred, nil
	}
	if !p.Interactive || len(options) == 0 {
		return "", queries.ErrCancelled
	}

	// a chooser that cannot run (no terminal, killed) counts as cancelled
	final, err := tea.NewProgram(newChooser(options), p.Options...).Run()
	if err != nil {
		return "", fmt.Errorf("%w: table chooser: %w", queries.ErrCancelled, err)
	}
	c := final.(chooser)
	if c.cancelled {
		return "", queries.ErrCancelled
	}
	return options[c.cursor], nil
}

type chooser struct {
	options   []string
	cursor    int
	cancelled bool
}

func newChooser(options []string) chooser {
	return chooser{options: options}
}

func (c chooser) Init() tea.Cmd { return nil }

func (c chooser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch km.String() {
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
	case "down", "j":
		if c.cursor < len(c.options)-1 {
			c.cursor++
		}
	case "enter":
		return c, tea.Quit
	case "esc", "ctrl+c", "q":
		c.cancelled = true
		return c, tea.Quit
	}
	return c, nil
}

func (c chooser) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("No saved queries. Browse which table?"))
	b.WriteString("\n\n")
	for i, o := range c.options {
		cursor := "  "
		line := o
		if i == c.cursor {
			cursor = "▸ "
			line = TitleStyle.Render(o)
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString("\n" + MetaStyle.Render("enter select • esc first table"))
	return PopupStyle.Render(b.String())
}
