// cmd/dbscope/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/dbscope/internal/config"
	"github.com/nhath/dbscope/internal/db"
	"github.com/nhath/dbscope/internal/history"
	"github.com/nhath/dbscope/internal/queries"
	"github.com/nhath/dbscope/internal/schema"
	"github.com/nhath/dbscope/internal/ui"
	"github.com/nhath/dbscope/internal/visibility"
	"github.com/nhath/dbscope/internal/xref"
)

// sampleQueries are stored by -seed next to the person fixture
var sampleQueries = []queries.NamedQuery{
	{Name: "Default", Query: "SELECT * FROM person"},
	{Name: "Youngest first", Query: "SELECT firstname, lastname, age FROM person ORDER BY age"},
	{Name: "Nobody", Query: "SELECT * FROM person WHERE age > 99"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dbscope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	debug := flag.Bool("debug", false, "Enable debug logging to debug.log")
	seed := flag.Bool("seed", false, "Create the person fixture table and sample named queries")
	profileName := flag.String("profile", "", "Connection profile from the config file")
	table := flag.String("table", "", "Table to browse when the database has no saved queries")
	saveProfile := flag.String("save-profile", "", "Save the dsn argument as a named profile, then connect with it")
	deleteProfile := flag.String("delete-profile", "", "Delete a named profile and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: dbscope [flags] [dsn]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *debug {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			return fmt.Errorf("could not open debug log: %w", err)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if *deleteProfile != "" {
		if err := cfg.DeleteProfile(*deleteProfile); err != nil {
			return err
		}
		fmt.Printf("deleted profile %q from %s\n", *deleteProfile, cfg.Path())
		return nil
	}
	dsn := flag.Arg(0)
	if *saveProfile != "" {
		if err := saveDSN(cfg, *saveProfile, dsn); err != nil {
			return err
		}
		logger.Info("profile saved", slog.String("profile", *saveProfile))
		*profileName, dsn = *saveProfile, ""
	}

	profile, err := selectProfile(cfg, *profileName, dsn)
	if err != nil {
		return err
	}
	driverType, params, err := profile.ConnectParams()
	if err != nil {
		return err
	}
	params.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := db.Open(ctx, driverType, params)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", profile.DisplayDSN(), err)
	}
	defer d.Close()
	logger.Info("connected", slog.String("dsn", profile.DisplayDSN()))

	if *seed {
		if err := db.SeedPeople(ctx, d); err != nil {
			return fmt.Errorf("seed person: %w", err)
		}
		if err := seedQueries(ctx, d, cfg.QueryTable); err != nil {
			return err
		}
	}

	vis := visibility.NewStore()
	catalog := schema.NewCatalog(d,
		schema.WithSystemTables(cfg.IncludeSystemTables),
		schema.WithLogger(logger),
	)
	if tables, err := catalog.Introspect(ctx); err != nil {
		logger.Warn("schema unavailable, no columns hidden by default", slog.Any("error", err))
	} else {
		hidden := vis.SeedDefaultsFromSchema(tables)
		logger.Debug("primary keys hidden", slog.Any("columns", hidden))
	}

	preferred := *table
	if preferred == "" {
		preferred = cfg.DefaultTable
	}
	prompt := ui.TablePrompt{Preferred: preferred, Interactive: preferred == ""}
	named, err := queries.NewCatalog(cfg.QueryTable, logger).List(ctx, d, prompt)
	switch {
	case err != nil:
		logger.Warn("named queries unavailable", slog.Any("error", err))
	case len(named) == 0:
		logger.Warn("database has no tables, query execution disabled")
	}

	deps := ui.Deps{
		Config:     cfg,
		Prober:     d,
		Visibility: vis,
		Locator:    xref.NewLocator(xref.WithLogger(logger)),
		Queries:    named,
		Source:     profile.DisplayDSN(),
		DriverType: string(driverType),
		Logger:     logger,
	}
	if store, err := history.NewStore(logger); err != nil {
		logger.Warn("history disabled", slog.Any("error", err))
	} else {
		defer store.Close()
		deps.Recorder = store
		deps.History = store
	}

	p := tea.NewProgram(ui.New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// selectProfile picks the connection: a DSN argument wins over -profile,
// which wins over the configured default profile
func selectProfile(cfg *config.Config, name, dsn string) (*config.Profile, error) {
	if dsn != "" {
		p, err := config.ParseDSN("cli", dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid dsn: %w", err)
		}
		return &p, nil
	}
	if name == "" {
		name = cfg.DefaultProfile
	}
	if name == "" {
		return nil, fmt.Errorf("no database given: pass a dsn or -profile (profiles: %v)", cfg.ListProfiles())
	}
	return cfg.GetProfile(name)
}

// saveDSN stores dsn as a new profile called name
func saveDSN(cfg *config.Config, name, dsn string) error {
	if dsn == "" {
		return errors.New("-save-profile needs a dsn argument")
	}
	p, err := config.ParseDSN(name, dsn)
	if err != nil {
		return fmt.Errorf("invalid dsn: %w", err)
	}
	return cfg.AddProfile(p)
}

func seedQueries(ctx context.Context, d db.Driver, table string) error {
	tables, err := d.ListTables(ctx, false)
	if err != nil {
		return fmt.Errorf("seed queries: %w", err)
	}
	if table == "" {
		table = queries.DefaultTable
	}
	if slices.Contains(tables, table) {
		return nil
	}
	if err := queries.Seed(ctx, d, table, sampleQueries...); err != nil {
		return fmt.Errorf("seed queries: %w", err)
	}
	return nil
}
