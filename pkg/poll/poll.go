// Package poll expresses bounded waits as data. A Policy describes how often
// to check a condition, how many times, and what the caller should do when
// the bound is exhausted.
package poll

import (
	"context"
	"fmt"
	"time"
)

// Action is the caller-level reaction to an exhausted poll.
type Action string

const (
	// ActionWarn logs a warning and continues.
	ActionWarn Action = "warn"
	// ActionIssue records an issue and continues.
	ActionIssue Action = "issue"
	// ActionAbandon records an issue and skips the rest of the current unit
	// of work (for example a game round).
	ActionAbandon Action = "abandon"
	// ActionFail records an issue and fails the agent run.
	ActionFail Action = "fail"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionWarn, ActionIssue, ActionAbandon, ActionFail:
		return true
	}
	return false
}

// Policy is a bounded polling schedule.
type Policy struct {
	Interval    time.Duration `yaml:"interval" toml:"interval" json:"interval"`
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
	OnTimeout   Action        `yaml:"on_timeout" toml:"on_timeout" json:"on_timeout"`
}

// Within builds a policy that checks every interval until timeout. The first
// check is immediate and the last one happens no earlier than timeout.
func Within(timeout, interval time.Duration, onTimeout Action) Policy {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if timeout < 0 {
		timeout = 0
	}
	attempts := int(timeout/interval) + 1
	if timeout%interval != 0 {
		attempts++
	}
	return Policy{Interval: interval, MaxAttempts: attempts, OnTimeout: onTimeout}
}

// Budget is the longest time the policy can wait between the first and last
// check.
func (p Policy) Budget() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Interval
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if !p.OnTimeout.Valid() {
		return fmt.Errorf("invalid on_timeout: %q (must be 'warn', 'issue', 'abandon', or 'fail')", p.OnTimeout)
	}
	return nil
}

// Condition is checked once per attempt. Errors count as "not yet" so a page
// that is mid-navigation does not end the wait.
type Condition func() (bool, error)

// Outcome describes how a poll ended.
type Outcome struct {
	Met      bool
	Attempts int
	// LastErr is the most recent error returned by the condition, if any.
	LastErr error
}

// Wait checks cond immediately and then once per interval until it returns
// true or MaxAttempts checks have been made. The returned error is non-nil
// only when ctx ends.
func (p Policy) Wait(ctx context.Context, clock Clock, cond Condition) (Outcome, error) {
	var out Outcome
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := clock.Sleep(ctx, p.Interval); err != nil {
				return out, err
			}
		}

		out.Attempts++
		ok, err := cond()
		if err != nil {
			out.LastErr = err
			continue
		}
		if ok {
			out.Met = true
			return out, nil
		}
	}
	return out, nil
}
