package agent

import (
	"github.com/entrhq/partyprobe/pkg/attributes"
	"github.com/entrhq/partyprobe/pkg/logging"
	"github.com/entrhq/partyprobe/pkg/poll"
)

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for dwells and polls.
func WithClock(clock poll.Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithConsole sets the console the runner reports progress to. The runner
// tags every line with its agent name.
func WithConsole(console *logging.Console) Option {
	return func(r *Runner) {
		r.console = console
	}
}

// WithAnswers sets the generator for suggestion texts.
func WithAnswers(gen *attributes.Generator) Option {
	return func(r *Runner) {
		r.answers = gen
	}
}
