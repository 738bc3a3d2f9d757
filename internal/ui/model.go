// internal/ui/model.go
package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	bbtable "github.com/evertras/bubble-table/table"

	"github.com/nhath/dbscope/internal/config"
	"github.com/nhath/dbscope/internal/history"
	"github.com/nhath/dbscope/internal/queries"
	"github.com/nhath/dbscope/internal/ui/components/table"
	"github.com/nhath/dbscope/internal/validate"
	"github.com/nhath/dbscope/internal/visibility"
	"github.com/nhath/dbscope/internal/xref"
)

// Focus is the pane receiving keys
type Focus int

const (
	FocusEditor Focus = iota
	FocusResults
	FocusPreview
)

// Deps are the collaborators the screen drives
type Deps struct {
	Config     *config.Config
	Prober     validate.Prober
	Recorder   validate.Recorder
	Visibility *visibility.Store
	Locator    *xref.Locator
	History    HistoryLister
	Queries    []queries.NamedQuery
	// Source labels the connection in the status bar and in history
	Source     string
	DriverType string
	Logger     *slog.Logger
}

// Model is the root Bubble Tea model
type Model struct {
	ctx     context.Context
	config  *config.Config
	keys    KeyMap
	help    help.Model
	logger  *slog.Logger
	engine  *validate.Engine
	vis     *visibility.Store
	display *display
	locator *xref.Locator
	source  string
	dbType  string

	queries  []queries.NamedQuery
	queryIdx int

	width, height int
	focus         Focus

	editor   textarea.Model
	lastText string
	grid     bbtable.Model

	preview      viewport.Model
	previewing   bool
	previewTitle string

	showHelp     bool
	showColumns  bool
	columnCursor int

	history        HistoryLister
	showHistory    bool
	historyEntries []history.Entry
	historyCursor  int
	historyFilter  string
	historyTotal   int

	debounceID int
	bannerID   int
	banner     string
	bannerErr  bool
}

// New builds the screen and the validation engine feeding it
func New(ctx context.Context, deps Deps) Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	vis := deps.Visibility
	if vis == nil {
		vis = visibility.NewStore()
	}
	locator := deps.Locator
	if locator == nil {
		locator = xref.NewLocator(xref.WithLogger(logger))
	}
	InitStyles(cfg.Theme)

	disp := newDisplay(vis)
	opts := []validate.Option{
		validate.WithSink(disp),
		validate.WithMaxRows(cfg.MaxRows),
		validate.WithLogger(logger),
	}
	if deps.Recorder != nil {
		opts = append(opts, validate.WithRecorder(deps.Recorder, deps.Source))
	}

	ta := textarea.New()
	ta.Placeholder = "Enter a query; it is checked as you type..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(4)
	ta.SetWidth(80)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(textFaint)
	ta.Focus()

	m := Model{
		ctx:     ctx,
		config:  cfg,
		keys:    NewKeyMap(cfg.Keys),
		help:    help.New(),
		logger:  logger,
		engine:  validate.New(deps.Prober, vis, opts...),
		vis:     vis,
		display: disp,
		locator: locator,
		history: deps.History,
		source:  deps.Source,
		dbType:  deps.DriverType,
		queries: deps.Queries,
		editor:  ta,
		grid:    table.New(nil),
		preview: viewport.New(80, 10),
	}
	if len(m.queries) > 0 {
		m.editor.SetValue(m.queries[0].Query)
	} else {
		m.bannerID++
		m.banner, m.bannerErr = noQueriesBanner, true
	}
	m.lastText = m.editor.Value()
	return m
}

// noQueriesBanner explains why evaluation stays off for an empty catalog
const noQueriesBanner = "no tables: query execution disabled"

// Engine exposes the validation engine driving the screen
func (m Model) Engine() *validate.Engine { return m.engine }

// Init submits the loaded query and switches evaluation on. With no
// named queries the engine is left disabled.
func (m Model) Init() tea.Cmd {
	if len(m.queries) == 0 {
		id := m.bannerID
		return tea.Batch(textarea.Blink, tea.Tick(m.config.StatusDuration.Duration, func(time.Time) tea.Msg {
			return clearBannerMsg{ID: id}
		}))
	}
	engine, ctx, text := m.engine, m.ctx, m.editor.Value()
	return tea.Batch(textarea.Blink, func() tea.Msg {
		engine.Validate(ctx, text)
		return ValidatedMsg{Outcome: engine.SetEnabled(ctx, true)}
	})
}

// currentQueryName returns the name of the loaded named query, if any
func (m Model) currentQueryName() string {
	if m.queryIdx < len(m.queries) {
		return m.queries[m.queryIdx].Name
	}
	return ""
}
