// Package report assembles the end-of-run summary from agent results and the
// issue log, prints it to the console and writes it as artifacts.
package report

import (
	"sort"
	"time"

	"github.com/entrhq/partyprobe/pkg/agent"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/phase"
)

// Outcome is one agent's line in the report.
type Outcome struct {
	Name   string             `json:"name"`
	Role   agent.Role         `json:"role"`
	Result agent.Result       `json:"result"`
	Rounds []phase.RoundState `json:"rounds,omitempty"`
}

// Report is the complete record of one run.
type Report struct {
	RunID      string         `json:"run_id"`
	TargetURL  string         `json:"target_url"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Agents     []Outcome      `json:"agents"`
	Issues     []issues.Issue `json:"issues"`
}

// KindCount is the number of issues of one kind.
type KindCount struct {
	Kind  issues.Kind `json:"kind"`
	Count int         `json:"count"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Passed reports whether every agent succeeded.
func (r *Report) Passed() bool {
	for _, a := range r.Agents {
		if !a.Result.Success {
			return false
		}
	}
	return true
}

// Failures returns the number of failed agents.
func (r *Report) Failures() int {
	n := 0
	for _, a := range r.Agents {
		if !a.Result.Success {
			n++
		}
	}
	return n
}

// Counts returns issue counts per kind, most frequent first and by kind name
// on ties.
func (r *Report) Counts() []KindCount {
	byKind := make(map[issues.Kind]int)
	for _, i := range r.Issues {
		byKind[i.Kind]++
	}

	out := make([]KindCount, 0, len(byKind))
	for k, n := range byKind {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// IssuesFor returns the issues attributed to agent in emission order.
func (r *Report) IssuesFor(agent string) []issues.Issue {
	var out []issues.Issue
	for _, i := range r.Issues {
		if i.Agent == agent {
			out = append(out, i)
		}
	}
	return out
}
