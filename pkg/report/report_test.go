package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/partyprobe/pkg/agent"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/phase"
)

var t0 = time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)

func sampleReport() *Report {
	return &Report{
		RunID:      "run-1",
		TargetURL:  "http://localhost:3000",
		StartedAt:  t0,
		FinishedAt: t0.Add(95 * time.Second),
		Agents: []Outcome{
			{Name: "ProbeHost", Role: agent.Host(), Result: agent.Succeeded(), Rounds: []phase.RoundState{{Round: 1}, {Round: 2}}},
			{Name: "ProbeClient1", Role: agent.Client(1), Result: agent.Failed("Blank screen in lobby")},
		},
		Issues: []issues.Issue{
			{Agent: "ProbeClient1", Kind: issues.KindBlankScreen, Message: "Page body has only 20 characters of markup", Timestamp: t0.Add(10 * time.Second)},
			{Agent: "ProbeHost", Kind: issues.KindStuck, Message: "No round marker", Timestamp: t0.Add(40 * time.Second), Screenshot: "shots/ProbeHost-1.png"},
			{Agent: "ProbeHost", Kind: issues.KindStuck, Message: "No round marker | again", Timestamp: t0.Add(50 * time.Second)},
		},
	}
}

func TestReportSummary(t *testing.T) {
	r := sampleReport()

	assert.False(t, r.Passed())
	assert.Equal(t, 1, r.Failures())
	assert.Equal(t, 95*time.Second, r.Duration())
	assert.Equal(t, []KindCount{
		{Kind: issues.KindStuck, Count: 2},
		{Kind: issues.KindBlankScreen, Count: 1},
	}, r.Counts())
	assert.Len(t, r.IssuesFor("ProbeHost"), 2)
	assert.Empty(t, r.IssuesFor("nobody"))
}

func TestPassedWithNoAgents(t *testing.T) {
	assert.True(t, (&Report{}).Passed())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sampleReport(), false))
	out := buf.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "FAILED (1 of 2 agents)")
	assert.Contains(t, out, "ProbeHost (host): success")
	assert.Contains(t, out, "ProbeClient1 (client 1): failed: Blank screen in lobby")
	assert.Contains(t, out, "Issues (3)")
	assert.Contains(t, out, "screenshot: shots/ProbeHost-1.png")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Page body")), bytes.Index(buf.Bytes(), []byte("No round marker")))
}

func TestRenderNoIssues(t *testing.T) {
	r := sampleReport()
	r.Issues = nil
	r.Agents = r.Agents[:1]

	out := Render(r, true)
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "none")
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	w := NewArtifactWriter(dir)

	paths, err := w.WriteAll(sampleReport(), true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, JSONFile), filepath.Join(dir, MarkdownFile)}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Issues, 3)
	assert.Equal(t, issues.KindBlankScreen, decoded.Issues[0].Kind)
	assert.Equal(t, agent.Client(1), decoded.Agents[1].Role)

	md, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(md), "| ProbeClient1 | client 1 | 0 | ❌ Blank screen in lobby |")
	assert.Contains(t, string(md), "| ProbeHost | host | 2 | ✅ success |")
	assert.Contains(t, string(md), `No round marker \| again`)
	assert.Contains(t, string(md), "[ProbeHost-1.png](shots/ProbeHost-1.png)")
}

func TestWriteAllNothingSelected(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unused")

	paths, err := NewArtifactWriter(dir).WriteAll(sampleReport(), false, false)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.NoDirExists(t, dir)
}
