// Package issues holds the append-only log of UI anomalies detected while
// agents drive the target game.
package issues

import (
	"fmt"
	"sync"
	"time"
)

// Kind classifies an issue. The set is open; new kinds may be added without
// affecting existing entries.
type Kind string

const (
	KindBlankScreen    Kind = "BLANK_SCREEN"
	KindMissingUI      Kind = "MISSING_UI"
	KindNoContent      Kind = "NO_CONTENT"
	KindElementMissing Kind = "ELEMENT_MISSING"
	KindInputMissing   Kind = "INPUT_MISSING"
	KindStuck          Kind = "STUCK"
	KindNoResults      Kind = "NO_RESULTS"
	KindError          Kind = "ERROR"
)

// IsBlankKind reports whether k is one of the kinds emitted by a blank screen
// classification.
func IsBlankKind(k Kind) bool {
	return k == KindBlankScreen || k == KindMissingUI || k == KindNoContent
}

// Issue is a single timestamped anomaly attributed to an agent.
type Issue struct {
	Agent     string    `json:"agent"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// Optional diagnostics captured alongside the issue
	Screenshot string `json:"screenshot,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", i.Timestamp.Format("15:04:05.000"), i.Agent, i.Kind, i.Message)
}

// Sink is the shared, append-only issue log. It is created once per run and
// handed to every agent; Add is the only mutation.
type Sink struct {
	mu     sync.Mutex
	issues []Issue
	now    func() time.Time
	last   time.Time
}

// NewSink creates an empty sink stamping issues with now. A nil now uses
// time.Now.
func NewSink(now func() time.Time) *Sink {
	if now == nil {
		now = time.Now
	}
	return &Sink{now: now}
}

// Add appends an issue and returns the stored copy. The timestamp is
// assigned under the lock and never precedes the previous entry's.
func (s *Sink) Add(issue Issue) Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts
	issue.Timestamp = ts

	s.issues = append(s.issues, issue)
	return issue
}

// Record is a shorthand for Add with only the required fields.
func (s *Sink) Record(agent string, kind Kind, format string, args ...interface{}) Issue {
	return s.Add(Issue{
		Agent:   agent,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// Len returns the number of issues recorded so far.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

// Snapshot returns a copy of all issues in emission order.
func (s *Sink) Snapshot() []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Filter returns the issues matching agent (empty matches all) and kind
// (empty matches all), in emission order.
func (s *Sink) Filter(agent string, kind Kind) []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Issue
	for _, issue := range s.issues {
		if agent != "" && issue.Agent != agent {
			continue
		}
		if kind != "" && issue.Kind != kind {
			continue
		}
		out = append(out, issue)
	}
	return out
}
