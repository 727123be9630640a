// Package phase drives one agent through the rounds of a game:
// suggest an answer, wait for voting, vote, then observe the outcome.
package phase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/partyprobe/pkg/attributes"
	"github.com/entrhq/partyprobe/pkg/browser"
	"github.com/entrhq/partyprobe/pkg/config"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/logging"
	"github.com/entrhq/partyprobe/pkg/poll"
	"github.com/entrhq/partyprobe/pkg/probe"
)

// ErrTimeout is wrapped by PlayRound when a poll configured to fail is
// exhausted.
var ErrTimeout = errors.New("poll exhausted")

// Options configures a Driver.
type Options struct {
	Agent        string
	Selectors    config.Selectors
	Polls        config.PollConfig
	ObserveDwell time.Duration

	// Answers generates the suggestion texts. Nil uses a generator seeded
	// from the agent name.
	Answers *attributes.Generator

	// TraceStates logs the inferred screen at every phase boundary.
	TraceStates bool
}

// OptionsFromConfig builds driver options for one agent.
func OptionsFromConfig(cfg *config.Config, agent string) Options {
	return Options{
		Agent:        agent,
		Selectors:    cfg.Selectors,
		Polls:        cfg.Polls,
		ObserveDwell: cfg.Timings.ObserveDwell,
		TraceStates:  logging.ParseLogLevel(cfg.Logging.Verbosity) >= logging.LogLevelDebug,
	}
}

// Driver plays rounds on a single page.
type Driver struct {
	page   browser.Page
	prober *probe.Prober
	sink   *issues.Sink
	clock  poll.Clock
	log    logging.Leveled
	opts   Options
}

// New creates a driver. prober must watch the same page.
func New(page browser.Page, prober *probe.Prober, sink *issues.Sink, clock poll.Clock, log logging.Leveled, opts Options) *Driver {
	if clock == nil {
		clock = poll.RealClock{}
	}
	if log == nil {
		log = logging.Discard()
	}
	if opts.Answers == nil {
		opts.Answers = attributes.New(seedFor(opts.Agent))
	}
	return &Driver{
		page:   page,
		prober: prober,
		sink:   sink,
		clock:  clock,
		log:    log,
		opts:   opts,
	}
}

func seedFor(name string) int64 {
	var h int64 = 1469598103934665603
	for _, r := range name {
		h = h*1099511628211 ^ int64(r)
	}
	return h
}

// PlayRound runs Suggest, AwaitVoting, Vote and Observe for round. An
// exhausted poll is handled according to its policy; only ActionFail and a
// cancelled context produce an error.
func (d *Driver) PlayRound(ctx context.Context, round int) (RoundState, error) {
	state := RoundState{Round: round}

	d.trace(ctx, round, PhaseSuggest)
	skip, err := d.suggest(ctx, &state)
	if err != nil || skip {
		return state, err
	}

	d.trace(ctx, round, PhaseAwaitVoting)
	method, skip, err := d.awaitVoting(ctx, &state)
	if err != nil || skip {
		return state, err
	}

	if method != VoteNone {
		d.trace(ctx, round, PhaseVote)
		d.vote(&state, method)
	}

	d.trace(ctx, round, PhaseObserve)
	if err := d.clock.Sleep(ctx, d.opts.ObserveDwell); err != nil {
		return state, err
	}
	state.Progressed = d.prober.HasProgressed(ctx)
	state.Completed = true
	return state, nil
}

func (d *Driver) suggest(ctx context.Context, state *RoundState) (bool, error) {
	sel := d.opts.Selectors.AnswerInput
	out, err := d.opts.Polls.Suggest.Wait(ctx, d.clock, func() (bool, error) {
		return d.page.Visible(sel)
	})
	if err != nil {
		return true, err
	}
	if !out.Met {
		skip, err := d.exhausted(ctx, state, d.opts.Polls.Suggest, issues.KindInputMissing,
			fmt.Sprintf("No answer input appeared in round %d", state.Round),
			fmt.Sprintf("answer input never appeared in round %d", state.Round))
		return skip, err
	}

	answer := d.opts.Answers.Next(d.opts.Agent, state.Round)
	if err := d.page.Fill(sel, answer); err != nil {
		d.log.Warningf("answer fill failed: %v", err)
		return false, nil
	}
	if err := d.page.Press(sel, "Enter"); err != nil {
		d.log.Warningf("answer submit failed: %v", err)
		return false, nil
	}
	d.log.Debugf("round %d: suggested %q", state.Round, answer)
	state.Answer = answer
	state.Suggested = true
	return false, nil
}

func (d *Driver) awaitVoting(ctx context.Context, state *RoundState) (VoteMethod, bool, error) {
	method := VoteNone
	out, err := d.opts.Polls.Voting.Wait(ctx, d.clock, func() (bool, error) {
		n, err := d.page.Count(d.opts.Selectors.VoteButtons)
		if err == nil && n > 0 {
			method = VoteButton
			return true, nil
		}
		m, inputErr := d.page.Count(d.opts.Selectors.VoteInput)
		if inputErr == nil && m > 0 {
			method = VoteInput
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return false, inputErr
	})
	if err != nil {
		return VoteNone, true, err
	}
	if !out.Met {
		skip, err := d.exhausted(ctx, state, d.opts.Polls.Voting, issues.KindElementMissing,
			fmt.Sprintf("Voting UI never appeared in round %d", state.Round),
			"voting UI never appeared")
		return VoteNone, skip, err
	}

	state.VotingSeen = true
	return method, false, nil
}

func (d *Driver) vote(state *RoundState, method VoteMethod) {
	var err error
	switch method {
	case VoteButton:
		err = d.page.Click(d.opts.Selectors.VoteButtons, 0)
	case VoteInput:
		err = d.voteByInput()
	}
	state.Vote = method
	if err != nil {
		d.log.Warningf("vote casting failed: %v", err)
		return
	}
	d.log.Debugf("round %d: voted via %s", state.Round, method)
	state.VoteCast = true
}

func (d *Driver) voteByInput() error {
	sel := d.opts.Selectors.VoteInput
	if err := d.page.Fill(sel, "1"); err != nil {
		return err
	}
	for _, event := range []string{"input", "change"} {
		if err := d.page.Dispatch(sel, event); err != nil {
			return err
		}
	}
	return d.page.Press(sel, "Enter")
}

// exhausted applies policy's timeout action. It reports whether the rest of
// the round must be skipped.
func (d *Driver) exhausted(ctx context.Context, state *RoundState, policy poll.Policy, kind issues.Kind, issueMsg, warnMsg string) (bool, error) {
	switch policy.OnTimeout {
	case poll.ActionWarn:
		d.log.Warningf("%s", warnMsg)
		return false, nil
	case poll.ActionIssue:
		d.prober.Capture(ctx, kind, issueMsg)
		return false, nil
	case poll.ActionFail:
		d.prober.Capture(ctx, kind, issueMsg)
		state.Abandoned = true
		return true, fmt.Errorf("round %d: %s: %w", state.Round, warnMsg, ErrTimeout)
	default:
		d.prober.Capture(ctx, kind, issueMsg)
		d.log.Infof("round %d abandoned", state.Round)
		state.Abandoned = true
		return true, nil
	}
}

func (d *Driver) trace(ctx context.Context, round int, phase Phase) {
	if !d.opts.TraceStates {
		return
	}
	d.log.Debugf("round %d: %s (screen looks like %s)", round, phase, d.prober.State(ctx))
}
