package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/partyprobe/pkg/attributes"
	"github.com/entrhq/partyprobe/pkg/browser"
	"github.com/entrhq/partyprobe/pkg/config"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/logging"
	"github.com/entrhq/partyprobe/pkg/phase"
	"github.com/entrhq/partyprobe/pkg/poll"
	"github.com/entrhq/partyprobe/pkg/probe"
)

// stepFailure ends a run early. When recorded is false the runner adds an
// ERROR issue for it.
type stepFailure struct {
	reason   string
	recorded bool
	err      error
}

func (f *stepFailure) Error() string {
	if f.err == nil {
		return f.reason
	}
	return fmt.Sprintf("%s: %v", f.reason, f.err)
}

func (f *stepFailure) Unwrap() error { return f.err }

// guard is a failure whose typed issue the prober already recorded.
func guard(reason string) error {
	return &stepFailure{reason: reason, recorded: true}
}

// broken is a failure with no issue recorded yet.
func broken(reason string, err error) error {
	return &stepFailure{reason: reason, err: err}
}

// Runner plays the game as a single agent.
type Runner struct {
	name     string
	role     Role
	cfg      *config.Config
	launcher Launcher
	sink     *issues.Sink
	clock    poll.Clock
	console  *logging.Console
	answers  *attributes.Generator

	page   browser.Page
	prober *probe.Prober
	driver *phase.Driver
	rounds []phase.RoundState
}

// NewRunner creates a runner for the agent called name.
func NewRunner(name string, role Role, cfg *config.Config, launcher Launcher, sink *issues.Sink, opts ...Option) *Runner {
	r := &Runner{
		name:     name,
		role:     role,
		cfg:      cfg,
		launcher: launcher,
		sink:     sink,
		clock:    poll.RealClock{},
		console:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.console = r.console.WithPrefix(name)
	return r
}

// Name returns the agent name.
func (r *Runner) Name() string { return r.name }

// Role returns the agent role.
func (r *Runner) Role() Role { return r.role }

// Rounds returns the state of every round played so far.
func (r *Runner) Rounds() []phase.RoundState {
	return append([]phase.RoundState(nil), r.rounds...)
}

// Run executes the whole script and always returns a result.
func (r *Runner) Run(ctx context.Context) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.console.Errorf("panic: %v", rec)
			r.sink.Record(r.name, issues.KindError, "Unexpected panic: %v", rec)
			result = Failed(fmt.Sprintf("unexpected panic: %v", rec))
		}
	}()

	r.console.Step("starting as %s", r.role)
	if err := r.run(ctx); err != nil {
		result = r.failure(err)
		r.console.Errorf("%s", result.Reason)
		return result
	}
	r.console.Successf("finished %d rounds", len(r.rounds))
	return Succeeded()
}

func (r *Runner) failure(err error) Result {
	var f *stepFailure
	if errors.As(err, &f) {
		if !f.recorded {
			r.sink.Record(r.name, issues.KindError, "%s", f.Error())
		}
		return Failed(f.Error())
	}
	if errors.Is(err, phase.ErrTimeout) {
		return Failed(err.Error())
	}
	r.sink.Record(r.name, issues.KindError, "%v", err)
	return Failed(err.Error())
}

func (r *Runner) run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load", r.load},
		{"menu", r.openMenu},
		{"identify", r.identify},
		{"room", r.setupRoom},
		{"lobby", r.waitInLobby},
		{"rounds", r.playRounds},
		{"results", r.awaitResults},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.console.Verbosef("step %s", s.name)
		if err := s.fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) load(ctx context.Context) error {
	page, err := r.launcher.Launch(r.name)
	if err != nil {
		return broken("Failed to launch browser", err)
	}
	r.page = page
	r.prober = probe.New(page, r.sink, r.clock, r.console, probe.OptionsFromConfig(r.cfg, r.name))

	opts := phase.OptionsFromConfig(r.cfg, r.name)
	opts.Answers = r.answers
	r.driver = phase.New(page, r.prober, r.sink, r.clock, r.console, opts)

	r.console.Step("loading %s", r.cfg.TargetURL)
	err = page.Navigate(r.cfg.TargetURL, browser.NavigateOptions{
		WaitUntil: "networkidle",
		Timeout:   float64(r.cfg.Browser.NavigationTimeout.Milliseconds()),
	})
	if err != nil {
		return broken("Failed to load game", err)
	}

	if r.prober.IsBlankScreen(ctx) {
		return guard("Blank screen at main menu")
	}
	return nil
}

func (r *Runner) openMenu(ctx context.Context) error {
	sel := r.cfg.Selectors
	if !r.prober.WaitForElement(ctx, sel.PlayButton, r.cfg.Timings.ElementTimeout) {
		return guard("Play button not found")
	}
	if err := r.page.Click(sel.PlayButton, 0); err != nil {
		return broken("Failed to click play button", err)
	}
	return nil
}

func (r *Runner) identify(ctx context.Context) error {
	sel := r.cfg.Selectors
	if !r.prober.WaitForElement(ctx, sel.NameInput, r.cfg.Timings.ElementTimeout) {
		return guard("Name input not found")
	}
	if err := r.page.Fill(sel.NameInput, r.name); err != nil {
		return broken("Failed to enter name", err)
	}

	if confirm, _ := r.page.Visible(sel.ConfirmName); confirm {
		if err := r.page.Click(sel.ConfirmName, 0); err != nil {
			return broken("Failed to confirm name", err)
		}
	} else if err := r.page.Press(sel.NameInput, "Enter"); err != nil {
		return broken("Failed to confirm name", err)
	}
	r.console.Step("entered name")
	return nil
}

func (r *Runner) setupRoom(ctx context.Context) error {
	if r.role.IsHost() {
		return r.createRoom(ctx)
	}
	return r.joinRoom(ctx)
}

func (r *Runner) createRoom(ctx context.Context) error {
	sel := r.cfg.Selectors
	if !r.prober.WaitForElement(ctx, sel.CreateRoom, r.cfg.Timings.ElementTimeout) {
		return guard("Create room button not found")
	}
	if err := r.page.Click(sel.CreateRoom, 0); err != nil {
		return broken("Failed to create room", err)
	}
	r.console.Step("created room")
	return nil
}

func (r *Runner) joinRoom(ctx context.Context) error {
	sel := r.cfg.Selectors
	if !r.prober.WaitForElement(ctx, sel.BrowseRooms, r.cfg.Timings.ElementTimeout) {
		return guard("Room browser button not found")
	}
	if err := r.page.Click(sel.BrowseRooms, 0); err != nil {
		return broken("Failed to open room browser", err)
	}
	if err := r.clock.Sleep(ctx, r.cfg.Timings.RoomListDwell); err != nil {
		return err
	}

	labels, err := r.page.Texts(sel.RoomControls)
	if err != nil {
		return broken("Failed to read room list", err)
	}
	idx, err := PickRoom(labels, r.cfg.Join, r.cfg.HostName)
	if err != nil {
		return broken("Invalid room pattern", err)
	}
	if idx < 0 {
		r.prober.Capture(ctx, issues.KindError,
			fmt.Sprintf("No room buttons found in browser (%d controls listed)", len(labels)))
		return guard("No room buttons found in browser")
	}

	if err := r.page.Click(sel.RoomControls, idx); err != nil {
		return broken("Failed to join room", err)
	}
	r.console.Step("joined %q", strings.TrimSpace(labels[idx]))
	return nil
}

// PickRoom returns the index of the first label matching the join settings,
// or -1. Matching is case-insensitive. With MatchHost the label must also
// contain hostName.
func PickRoom(labels []string, join config.JoinConfig, hostName string) (int, error) {
	room, err := glob.Compile(strings.ToLower(join.RoomPattern))
	if err != nil {
		return -1, err
	}
	var host glob.Glob
	if join.MatchHost {
		host, err = glob.Compile("*" + glob.QuoteMeta(strings.ToLower(hostName)) + "*")
		if err != nil {
			return -1, err
		}
	}

	for i, label := range labels {
		l := strings.ToLower(strings.TrimSpace(label))
		if !room.Match(l) {
			continue
		}
		if host != nil && !host.Match(l) {
			continue
		}
		return i, nil
	}
	return -1, nil
}

func (r *Runner) waitInLobby(ctx context.Context) error {
	if !r.role.IsHost() {
		if r.prober.IsBlankScreen(ctx) {
			return guard("Blank screen in lobby")
		}
		r.console.Step("waiting in lobby")
		return nil
	}

	sel := r.cfg.Selectors
	if !r.prober.WaitForElement(ctx, sel.StartGame, r.cfg.Timings.ElementTimeout) {
		return guard("Start game button not found")
	}
	r.console.Step("waiting %s for players", r.cfg.Timings.LobbyDwell)
	if err := r.clock.Sleep(ctx, r.cfg.Timings.LobbyDwell); err != nil {
		return err
	}
	if err := r.page.Click(sel.StartGame, 0); err != nil {
		return broken("Failed to start game", err)
	}
	r.console.Step("started game")
	return nil
}

func (r *Runner) playRounds(ctx context.Context) error {
	for round := 1; round <= r.cfg.Rounds; round++ {
		r.console.Step("round %d/%d", round, r.cfg.Rounds)
		state, err := r.driver.PlayRound(ctx, round)
		r.rounds = append(r.rounds, state)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) awaitResults(ctx context.Context) error {
	policy := r.cfg.Polls.Results
	sel := r.cfg.Selectors.Results

	out, err := policy.Wait(ctx, r.clock, func() (bool, error) {
		return r.page.Visible(sel)
	})
	if err != nil {
		return err
	}
	if out.Met {
		r.console.Step("results screen reached")
		return nil
	}

	if policy.OnTimeout == poll.ActionWarn {
		r.console.Warningf("results screen never appeared")
		return nil
	}
	r.prober.Capture(ctx, issues.KindNoResults,
		fmt.Sprintf("No results screen after %d checks", out.Attempts))
	if policy.OnTimeout == poll.ActionFail {
		return guard("No results screen detected")
	}
	return nil
}
