// Package orchestrator starts the host and client agents with staggered
// delays, waits for all of them and assembles the run report.
package orchestrator

import (
	"context"
	"sync"

	"github.com/entrhq/partyprobe/pkg/agent"
	"github.com/entrhq/partyprobe/pkg/attributes"
	"github.com/entrhq/partyprobe/pkg/config"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/logging"
	"github.com/entrhq/partyprobe/pkg/poll"
	"github.com/entrhq/partyprobe/pkg/report"
)

// Orchestrator runs one multi-agent session against the target.
type Orchestrator struct {
	cfg        *config.Config
	launcher   agent.Launcher
	sink       *issues.Sink
	clock      poll.Clock
	agentClock poll.Clock
	console    *logging.Console
	runID      string
	seed       int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock for the start delays and for every agent.
func WithClock(clock poll.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
		o.agentClock = clock
	}
}

// WithAgentClock sets the clock used by the agents only.
func WithAgentClock(clock poll.Clock) Option {
	return func(o *Orchestrator) {
		o.agentClock = clock
	}
}

// WithConsole sets the progress console.
func WithConsole(console *logging.Console) Option {
	return func(o *Orchestrator) {
		o.console = console
	}
}

// WithRunID sets the id written into the report.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// WithSink sets the issue sink shared by the agents.
func WithSink(sink *issues.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithSeed seeds the answer generators.
func WithSeed(seed int64) Option {
	return func(o *Orchestrator) {
		o.seed = seed
	}
}

// New creates an orchestrator.
func New(cfg *config.Config, launcher agent.Launcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		launcher:   launcher,
		clock:      poll.RealClock{},
		agentClock: poll.RealClock{},
		console:    logging.Discard(),
		runID:      logging.NewRunID(),
		seed:       1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = issues.NewSink(o.clock.Now)
	}
	return o
}

// Sink returns the shared issue sink.
func (o *Orchestrator) Sink() *issues.Sink {
	return o.sink
}

type member struct {
	name string
	role agent.Role
}

func (o *Orchestrator) members() []member {
	out := []member{{name: o.cfg.HostName, role: agent.Host()}}
	for i := 1; i <= o.cfg.Clients; i++ {
		out = append(out, member{name: o.cfg.ClientName(i), role: agent.Client(i)})
	}
	return out
}

// Run starts the host, waits the host grace period, starts the first
// client, then starts each further client after the client stagger. It
// returns once every started agent has a result. Agents that were never
// started because ctx ended are left out of the report and the context
// error is returned alongside it.
func (o *Orchestrator) Run(ctx context.Context) (*report.Report, error) {
	log := o.console.WithPrefix("orchestrator")
	rep := &report.Report{
		RunID:     o.runID,
		TargetURL: o.cfg.TargetURL,
		StartedAt: o.clock.Now(),
	}

	members := o.members()
	outcomes := make([]report.Outcome, 0, len(members))
	runners := make([]*agent.Runner, 0, len(members))
	results := make([]agent.Result, len(members))

	var (
		wg      sync.WaitGroup
		stopErr error
	)
	for i, m := range members {
		if i > 0 {
			delay := o.cfg.Timings.ClientStagger
			if i == 1 {
				delay = o.cfg.Timings.HostGrace
			}
			log.Verbosef("waiting %s before starting %s", delay, m.name)
			if err := o.clock.Sleep(ctx, delay); err != nil {
				log.Warningf("stopped before starting %s: %v", m.name, err)
				stopErr = err
				break
			}
		}

		r := agent.NewRunner(m.name, m.role, o.cfg, o.launcher, o.sink,
			agent.WithClock(o.agentClock),
			agent.WithConsole(o.console),
			agent.WithAnswers(attributes.New(o.seed+int64(i))),
		)
		runners = append(runners, r)
		log.Infof("starting %s as %s", m.name, m.role)

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = r.Run(ctx)
		}(i)
	}

	wg.Wait()

	for i, r := range runners {
		outcomes = append(outcomes, report.Outcome{
			Name:   r.Name(),
			Role:   r.Role(),
			Result: results[i],
			Rounds: r.Rounds(),
		})
	}
	rep.Agents = outcomes
	rep.Issues = o.sink.Snapshot()
	rep.FinishedAt = o.clock.Now()

	if rep.Passed() {
		log.Successf("all %d agents finished", len(outcomes))
	} else {
		log.Warningf("%d of %d agents failed", rep.Failures(), len(outcomes))
	}
	return rep, stopErr
}
