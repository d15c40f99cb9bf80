package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGo(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestDocumentQueriesCarryMarkers(t *testing.T) {
	violations, err := lintTargets([]string{"../../sqlinline"})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QBad = `select 1 from documents`\n\nconst Label = \"not sql\"\n")

	violations, err := lintTargets([]string{dir})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "QBad", violations[0].name)
	assert.Equal(t, 3, violations[0].line)
}

func TestDuplicateMarker(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 99ac8482-e9f0-41b6-a28f-68cfaa80463b"
	writeGo(t, dir, "a.go", "package q\n\nconst QA = `"+marker+"\nselect 1;\n`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QB = `"+marker+"\nselect 2;\n`\n")

	violations, err := lintTargets([]string{dir})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "QB", violations[0].name)
	assert.Contains(t, violations[0].message, "already used")
}

func TestRunExitCode(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QBad = \"delete from documents\"\n")

	var stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{dir}, &stderr))
	assert.Contains(t, stderr.String(), "QBad")

	assert.Equal(t, 0, run([]string{"../../sqlinline"}, &stderr))
}
