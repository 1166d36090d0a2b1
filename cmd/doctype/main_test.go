package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/doctype/services/doctype/report"
	"github.com/AleutianAI/doctype/services/doctype/snapshot"
)

const greetSource = `
/**
 * Greets someone.
 * @param {string} name
 * @returns {number}
 */
function greet(name) {}
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.js"), []byte(greetSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not js"), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "doctype "+Version+"\n", out)
}

func TestAnnotate_Text(t *testing.T) {
	dir := writeProject(t)
	out, err := execute(t, "annotate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "greet fn(name: string) -> number")
	assert.Contains(t, out, "Greets someone.")
	assert.Contains(t, out, "1 files, 1 declarations")
	assert.NotContains(t, out, "notes.txt")
}

func TestAnnotate_JSON(t *testing.T) {
	dir := writeProject(t)
	out, err := execute(t, "annotate", "--json", "--strong", dir)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Files, 1)
	require.Len(t, r.Files[0].Declarations, 1)
	d := r.Files[0].Declarations[0]
	assert.Equal(t, "greet", d.Target)
	require.NotEmpty(t, d.Propagations)
	for _, p := range d.Propagations {
		assert.Equal(t, 101, p.Weight)
	}
}

func TestAnnotate_MissingPath(t *testing.T) {
	_, err := execute(t, "annotate", filepath.Join(t.TempDir(), "missing.js"))
	assert.Error(t, err)
}

func TestAnnotate_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctype.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parser:\n  extensions: [js]\n"), 0o644))
	_, err := execute(t, "annotate", "--config", path, writeProject(t))
	assert.Error(t, err)
}

func TestSnapshots_SaveListShow(t *testing.T) {
	dir := writeProject(t)
	store := t.TempDir()

	_, err := execute(t, "annotate", "--snapshot-dir", store, "--label", "first", dir)
	require.NoError(t, err)

	out, err := execute(t, "snapshot", "list", "--snapshot-dir", store, "--project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "1 declarations")
	id := strings.Fields(out)[0]

	out, err = execute(t, "snapshot", "show", "--snapshot-dir", store, "--json", id)
	require.NoError(t, err)
	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Len(t, r.Files, 1)

	_, err = execute(t, "snapshot", "show", "--snapshot-dir", store, "no-such-id")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestSnapshots_RequireDirectory(t *testing.T) {
	_, err := execute(t, "snapshot", "list")
	assert.ErrorIs(t, err, errNoSnapshotDir)
}

func TestRenderer_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)
	assert.False(t, r.styled)
	assert.Equal(t, "no snapshots\n", r.Snapshots(nil))

	out := r.Snapshots([]*snapshot.Metadata{{SnapshotID: "abc", ProjectRoot: "/p", Label: "nightly"}})
	assert.True(t, strings.HasPrefix(out, "abc  "))
	assert.Contains(t, out, "nightly")
	assert.NotContains(t, out, "\x1b[")
}

func TestAnnotate_TraceWritesSpans(t *testing.T) {
	out, err := execute(t, "annotate", "--trace", writeProject(t))
	require.NoError(t, err)
	assert.Contains(t, out, "doctype.Analyzer.AnalyzeFiles")
	assert.Contains(t, out, "binder.Binder.Bind")
}

func TestSnapshots_DiffAndDelete(t *testing.T) {
	dir := writeProject(t)
	store := t.TempDir()

	_, err := execute(t, "annotate", "--snapshot-dir", store, "--label", "before", dir)
	require.NoError(t, err)
	changed := strings.Replace(greetSource, "{number}", "{string}", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.js"), []byte(changed), 0o644))
	_, err = execute(t, "annotate", "--snapshot-dir", store, "--label", "after", dir)
	require.NoError(t, err)

	out, err := execute(t, "snapshot", "list", "--snapshot-dir", store)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	after, before := strings.Fields(lines[0])[0], strings.Fields(lines[1])[0]

	out, err = execute(t, "snapshot", "diff", "--snapshot-dir", store, before, after)
	require.NoError(t, err)
	assert.Contains(t, out, "type_changed")
	assert.Contains(t, out, "-> string")

	_, err = execute(t, "snapshot", "delete", "--snapshot-dir", store, before)
	require.NoError(t, err)
	out, err = execute(t, "snapshot", "list", "--snapshot-dir", store)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestRenderer_Diff(t *testing.T) {
	r := newRenderer(&bytes.Buffer{})
	assert.Equal(t, "no changes\n", r.Diff(&report.Diff{}))
	out := r.Diff(&report.Diff{
		Added:   []string{"a.js#x"},
		Summary: report.DiffSummary{TotalChanges: 1, FilesAffected: 1},
	})
	assert.Equal(t, "+ a.js#x\n1 changes in 1 files\n", out)
}
