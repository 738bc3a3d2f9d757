package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/nhath/dbscope/internal/config"
)

// KeyMap holds the bindings of the main screen
type KeyMap struct {
	Exit           key.Binding
	ToggleValidate key.Binding
	NextQuery      key.Binding
	Columns        key.Binding
	SwitchFocus    key.Binding
	OpenReference  key.Binding
	History        key.Binding
	Help           key.Binding
	Close          key.Binding
	Toggle         key.Binding
	Up             key.Binding
	Down           key.Binding
}

func binding(keys []string, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(strings.Join(keys, "/"), desc))
}

// NewKeyMap builds bindings from the configured key lists
func NewKeyMap(km config.KeyMap) KeyMap {
	return KeyMap{
		Exit:           binding(km.Exit, "quit"),
		ToggleValidate: binding(km.ToggleValidate, "toggle validation"),
		NextQuery:      binding(km.NextQuery, "next named query"),
		Columns:        binding(km.Columns, "show/hide columns"),
		SwitchFocus:    binding(km.SwitchFocus, "editor/results"),
		OpenReference:  binding(km.OpenReference, "open file reference"),
		History:        binding(km.History, "recent validations"),
		Help:           binding(km.Help, "help"),
		Close:          binding([]string{"esc"}, "close"),
		Toggle:         key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space/x", "toggle")),
		Up:             binding([]string{"up", "k"}, "up"),
		Down:           binding([]string{"down", "j"}, "down"),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchFocus, k.NextQuery, k.ToggleValidate, k.Columns, k.Help, k.Exit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SwitchFocus, k.NextQuery, k.ToggleValidate},
		{k.Columns, k.OpenReference, k.History, k.Close},
		{k.Up, k.Down, k.Toggle},
		{k.Help, k.Exit},
	}
}
