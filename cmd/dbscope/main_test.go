package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/dbscope/internal/config"
	"github.com/nhath/dbscope/internal/db"
	"github.com/nhath/dbscope/internal/queries"
	"github.com/nhath/dbscope/internal/testutil"
)

func TestSelectProfile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Profiles = []config.Profile{
		{Name: "local", Type: "sqlite", Database: "local.db"},
		{Name: "prod", Type: "postgres", Host: "db", Port: 5432, Database: "app"},
	}

	p, err := selectProfile(cfg, "prod", "fixtures.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://fixtures.db", p.DisplayDSN(), "a dsn argument wins")

	p, err = selectProfile(cfg, "prod", "")
	require.NoError(t, err)
	assert.Equal(t, "prod", p.Name)

	cfg.DefaultProfile = "local"
	p, err = selectProfile(cfg, "", "")
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name)

	_, err = selectProfile(cfg, "missing", "")
	assert.ErrorContains(t, err, "profile not found")

	cfg.DefaultProfile = ""
	_, err = selectProfile(cfg, "", "")
	assert.ErrorContains(t, err, "no database given")

	_, err = selectProfile(cfg, "", "sqlite://")
	assert.ErrorContains(t, err, "invalid dsn")
}

func TestSeedQueries(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, db.SQLite, db.ConnectParams{Database: ":memory:"})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, seedQueries(ctx, d, ""))
	require.NoError(t, seedQueries(ctx, d, ""), "second run leaves the table alone")

	named, err := queries.NewCatalog("", nil).List(ctx, d, queries.PreferTable("person"))
	require.NoError(t, err)
	assert.Equal(t, sampleQueries, named)
}

func TestSaveDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := config.LoadFrom(path, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.ErrorContains(t, saveDSN(cfg, "local", ""), "needs a dsn")
	assert.ErrorContains(t, saveDSN(cfg, "local", "sqlite://"), "invalid dsn")

	require.NoError(t, saveDSN(cfg, "local", "fixtures.db"))
	assert.ErrorContains(t, saveDSN(cfg, "local", "other.db"), "already exists")

	reloaded, err := config.LoadFrom(path, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)
	p, err := selectProfile(reloaded, "local", "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://fixtures.db", p.DisplayDSN())

	require.NoError(t, reloaded.DeleteProfile("local"))
	reloaded, err = config.LoadFrom(path, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Empty(t, reloaded.ListProfiles())
}
