package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/partyprobe/pkg/agent"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/phase"
	"github.com/entrhq/partyprobe/pkg/report"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "archive", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(id string, start time.Time) *report.Report {
	return &report.Report{
		RunID:      id,
		TargetURL:  "http://localhost:3000",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Minute),
		Agents: []report.Outcome{
			{Name: "ProbeHost", Role: agent.Host(), Result: agent.Succeeded(),
				Rounds: []phase.RoundState{{Round: 1, Suggested: true, Vote: phase.VoteButton, VoteCast: true, Completed: true}}},
			{Name: "ProbeClient1", Role: agent.Client(1), Result: agent.Failed("No room buttons found in browser")},
		},
		Issues: []issues.Issue{
			{Agent: "ProbeClient1", Kind: issues.KindError, Message: "No room buttons found in browser", Timestamp: start.Add(20 * time.Second), Screenshot: "shots/a.png", URL: "http://localhost:3000/rooms"},
			{Agent: "ProbeHost", Kind: issues.KindStuck, Message: "No round marker", Timestamp: start.Add(90 * time.Second)},
		},
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 10, 17, 10, 0, 0, 123000000, time.UTC)
	want := sampleReport("run-a", start)

	require.NoError(t, s.SaveReport(want))

	got, err := s.LoadReport("run-a")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, want.Agents, got.Agents)
	require.Len(t, got.Issues, 2)
	assert.Equal(t, issues.KindError, got.Issues[0].Kind)
	assert.Equal(t, "shots/a.png", got.Issues[0].Screenshot)
	assert.Equal(t, "http://localhost:3000/rooms", got.Issues[0].URL)
	assert.True(t, want.Issues[1].Timestamp.Equal(got.Issues[1].Timestamp))
}

func TestLoadUnknownRun(t *testing.T) {
	s := newTestStore(t)

	got, err := s.LoadReport("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveReportReplaces(t *testing.T) {
	s := newTestStore(t)
	r := sampleReport("run-a", time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC))
	require.NoError(t, s.SaveReport(r))

	r.Issues = r.Issues[:1]
	require.NoError(t, s.SaveReport(r))

	got, err := s.IssuesForRun("run-a")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Issues)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveReport(sampleReport("old", base)))
	require.NoError(t, s.SaveReport(sampleReport("new", base.Add(500*time.Millisecond))))
	require.NoError(t, s.SaveReport(sampleReport("mid", base.Add(100*time.Millisecond))))

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
	assert.False(t, runs[0].Passed)
	assert.Equal(t, 2, runs[0].Agents)

	limited, err := s.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)
}

func TestKindCounts(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveReport(sampleReport("one", base)))
	second := sampleReport("two", base.Add(time.Hour))
	second.Issues = second.Issues[1:]
	require.NoError(t, s.SaveReport(second))

	all, err := s.KindCounts(0)
	require.NoError(t, err)
	assert.Equal(t, map[issues.Kind]int{issues.KindError: 1, issues.KindStuck: 2}, all)

	latest, err := s.KindCounts(1)
	require.NoError(t, err)
	assert.Equal(t, map[issues.Kind]int{issues.KindStuck: 1}, latest)
}
