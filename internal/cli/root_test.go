package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ceiba/internal/adapter/store"
	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ceibactl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"migrate"}, {"users"}, {"users", "import"}, {"users", "list"}, {"collections"}, {"export"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	importCmd, _, err := cmd.Find([]string{"users", "import"})
	require.NoError(t, err)
	file := importCmd.Flags().Lookup("file")
	require.NotNil(t, file)
	assert.Equal(t, "f", file.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	useSQLite(t)
	_, err := execute(t, "--format", "xml", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// useSQLite points the commands at a fresh SQLite database.
func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "ceiba.db"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	useSQLite(t)
	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema ready for sqlite store\n", out)
}

func TestUsersImportAndList(t *testing.T) {
	useSQLite(t)

	file := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(file, []byte("users:\n  - Octocat\n  - hubot\n"), 0o600))

	out, err := execute(t, "users", "import", "-f", file, "monalisa")
	require.NoError(t, err)
	assert.Equal(t, "registered 3 of 3 users\n", out)

	out, err = execute(t, "users", "import", "OCTOCAT")
	require.NoError(t, err)
	assert.Equal(t, "registered 0 of 1 users\n", out)

	out, err = execute(t, "--format", "json", "users", "list")
	require.NoError(t, err)
	var views []userView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 3)
	assert.Equal(t, "hubot", views[0].Username)
	assert.Equal(t, "monalisa", views[1].Username)
	assert.Equal(t, "Octocat", views[2].Username)
	assert.False(t, views[0].Session)
}

func TestUsersImportWithoutLogins(t *testing.T) {
	useSQLite(t)
	_, err := execute(t, "users", "import")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCollectionsEmpty(t *testing.T) {
	useSQLite(t)
	out, err := execute(t, "--format", "json", "collections")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "config", nil)))
}

func TestExport(t *testing.T) {
	useSQLite(t)
	ctx := context.Background()

	cfg, err := infra.LoadConfig()
	require.NoError(t, err)
	s, closeFn, err := store.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.InsertOne(ctx, "mols", domain.Document{"_id": int64(1), "smile": "CCO", "collection_name": "mols"})
	require.NoError(t, err)
	_, err = s.InsertOne(ctx, "jobs_mols", domain.Document{"_id": int64(9), "status": "AVAILABLE"})
	require.NoError(t, err)
	require.NoError(t, closeFn(ctx))

	output := filepath.Join(t.TempDir(), "mols.zip")
	out, err := execute(t, "export", "mols", "-o", output)
	require.NoError(t, err)
	assert.Equal(t, "exported 1 properties and 1 jobs of mols to "+output+"\n", out)

	zr, err := zip.OpenReader(output)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 2)
	assert.Equal(t, "properties.json", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	var props []map[string]any
	require.NoError(t, json.NewDecoder(rc).Decode(&props))
	require.Len(t, props, 1)
	assert.Equal(t, "CCO", props[0]["smile"])
}
