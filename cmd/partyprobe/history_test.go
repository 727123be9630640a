package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/partyprobe/pkg/agent"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/report"
	"github.com/entrhq/partyprobe/pkg/store"
)

func seedArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	archive, err := store.New(path)
	require.NoError(t, err)
	defer archive.Close()

	start := time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC)
	passed := &report.Report{
		RunID:      "run-old",
		TargetURL:  "http://localhost:3000",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Agents:     []report.Outcome{{Name: "ProbeHost", Role: agent.Host(), Result: agent.Succeeded()}},
	}
	failed := &report.Report{
		RunID:      "run-new",
		TargetURL:  "http://localhost:3000",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + 2*time.Minute),
		Agents: []report.Outcome{
			{Name: "ProbeHost", Role: agent.Host(), Result: agent.Succeeded()},
			{Name: "ProbeClient1", Role: agent.Client(1), Result: agent.Failed("No room buttons found in browser")},
		},
		Issues: []issues.Issue{
			{Agent: "ProbeClient1", Kind: issues.KindError, Message: "No room buttons found in browser", Timestamp: start.Add(time.Hour + 20*time.Second)},
			{Agent: "ProbeHost", Kind: issues.KindStuck, Message: "No round marker", Timestamp: start.Add(time.Hour + 80*time.Second)},
			{Agent: "ProbeHost", Kind: issues.KindStuck, Message: "No round marker", Timestamp: start.Add(time.Hour + 90*time.Second)},
		},
	}
	require.NoError(t, archive.SaveReport(passed))
	require.NoError(t, archive.SaveReport(failed))
	return path
}

func TestShowHistoryListsNewestFirst(t *testing.T) {
	path := seedArchive(t)
	var out bytes.Buffer

	require.NoError(t, showHistory(&out, path, 10, "", false))

	text := out.String()
	assert.Contains(t, text, "RUN")
	assert.Contains(t, text, "STATUS")
	newIdx := bytes.Index(out.Bytes(), []byte("run-new"))
	oldIdx := bytes.Index(out.Bytes(), []byte("run-old"))
	require.NotEqual(t, -1, newIdx)
	require.NotEqual(t, -1, oldIdx)
	assert.Less(t, newIdx, oldIdx)
	assert.Contains(t, text, "failed")
	assert.Contains(t, text, "passed")
	assert.Contains(t, text, "2m0s")
	assert.Contains(t, text, "Issue kinds: STUCK=2, ERROR=1")
}

func TestShowHistoryLimit(t *testing.T) {
	path := seedArchive(t)
	var out bytes.Buffer

	require.NoError(t, showHistory(&out, path, 1, "", false))

	assert.Contains(t, out.String(), "run-new")
	assert.NotContains(t, out.String(), "run-old")
}

func TestShowHistoryRunReport(t *testing.T) {
	path := seedArchive(t)
	var out bytes.Buffer

	require.NoError(t, showHistory(&out, path, 0, "run-new", false))

	text := out.String()
	assert.Contains(t, text, "run run-new")
	assert.Contains(t, text, "FAILED (1 of 2 agents)")
	assert.Contains(t, text, "No room buttons found in browser")
	assert.Contains(t, text, "Issues (3)")
}

func TestShowHistoryUnknownRun(t *testing.T) {
	path := seedArchive(t)

	err := showHistory(&bytes.Buffer{}, path, 0, "missing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run missing not found")
}

func TestShowHistoryEmptyArchive(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, showHistory(&out, filepath.Join(t.TempDir(), "runs.db"), 5, "", false))
	assert.Equal(t, "No archived runs.\n", out.String())
}

func TestShowHistoryWithoutArchive(t *testing.T) {
	assert.ErrorIs(t, showHistory(&bytes.Buffer{}, "", 5, "", false), errNoArchive)
}
