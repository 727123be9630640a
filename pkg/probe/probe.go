// Package probe inspects a live page to classify blank screens, wait for
// controls and detect whether a game round moved on. Every anomaly it finds
// is recorded in the shared issue sink; nothing here returns an error to the
// caller.
package probe

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/entrhq/partyprobe/pkg/browser"
	"github.com/entrhq/partyprobe/pkg/config"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/logging"
	"github.com/entrhq/partyprobe/pkg/poll"
)

// screenshotTimeFormat is used in screenshot file names
const screenshotTimeFormat = "20060102-150405.000"

// Options tunes a Prober.
type Options struct {
	// Agent is the name issues are attributed to
	Agent string

	Selectors config.Selectors

	MinMarkupLength    int
	MinTextLength      int
	ProgressTextLength int
	ProgressPattern    *regexp.Regexp

	// ElementPoll is the check interval of WaitForElement
	ElementPoll time.Duration

	// ArtifactsDir receives screenshots. Empty disables screenshots.
	ArtifactsDir string
}

// OptionsFromConfig builds prober options for one agent.
func OptionsFromConfig(cfg *config.Config, agent string) Options {
	return Options{
		Agent:              agent,
		Selectors:          cfg.Selectors,
		MinMarkupLength:    cfg.Probe.MinMarkupLength,
		MinTextLength:      cfg.Probe.MinTextLength,
		ProgressTextLength: cfg.Probe.ProgressTextLength,
		// Validated by config.Validate
		ProgressPattern: regexp.MustCompile(cfg.Probe.ProgressPattern),
		ElementPoll:     cfg.Timings.ElementPoll,
		ArtifactsDir:    cfg.Artifacts.Dir,
	}
}

// Prober runs detection checks against one agent's page.
type Prober struct {
	page  browser.Page
	sink  *issues.Sink
	clock poll.Clock
	log   logging.Leveled
	opts  Options

	mu  sync.Mutex
	seq int
}

// New creates a prober for page that records into sink.
func New(page browser.Page, sink *issues.Sink, clock poll.Clock, log logging.Leveled, opts Options) *Prober {
	if clock == nil {
		clock = poll.RealClock{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Prober{
		page:  page,
		sink:  sink,
		clock: clock,
		log:   log,
		opts:  opts,
	}
}

// Agent returns the name issues are attributed to.
func (p *Prober) Agent() string {
	return p.opts.Agent
}

// blankCheck is the outcome of the blank-screen classification. Kind is
// empty when the page looks populated.
type blankCheck struct {
	Kind    issues.Kind
	Message string
	Err     error
}

func (p *Prober) classify() blankCheck {
	raw, err := p.page.Content()
	if err != nil {
		return blankCheck{Err: err}
	}
	m, err := browser.AnalyzeHTML(raw)
	if err != nil {
		return blankCheck{Err: err}
	}

	if m.BodyLength < p.opts.MinMarkupLength {
		return blankCheck{
			Kind:    issues.KindBlankScreen,
			Message: fmt.Sprintf("Page body has only %d characters of markup", m.BodyLength),
		}
	}

	found := false
	for _, sel := range p.opts.Selectors.AppRoots {
		n, err := p.page.Count(sel)
		if err != nil {
			return blankCheck{Err: err}
		}
		if n > 0 {
			found = true
			break
		}
	}
	if !found {
		return blankCheck{
			Kind:    issues.KindMissingUI,
			Message: fmt.Sprintf("No app root element found (tried %s)", strings.Join(p.opts.Selectors.AppRoots, ", ")),
		}
	}

	if m.TextLength < p.opts.MinTextLength {
		return blankCheck{
			Kind:    issues.KindNoContent,
			Message: fmt.Sprintf("Page has only %d characters of visible text", m.TextLength),
		}
	}
	return blankCheck{}
}

// IsBlankScreen classifies the current page. The checks run in order
// markup length, app root presence, visible text length, and the first one
// that triggers records its issue. A page that cannot be evaluated records
// an ERROR followed by a BLANK_SCREEN and counts as blank.
func (p *Prober) IsBlankScreen(ctx context.Context) bool {
	c := p.classify()
	if c.Err != nil {
		p.log.Warningf("page evaluation failed: %v", c.Err)
		p.sink.Record(p.opts.Agent, issues.KindError, "Page evaluation failed: %v", c.Err)
		p.sink.Record(p.opts.Agent, issues.KindBlankScreen, "Page could not be evaluated")
		return true
	}
	if c.Kind == "" {
		p.log.Debugf("page has content")
		return false
	}

	p.log.Warningf("%s: %s", c.Kind, c.Message)
	p.sink.Add(p.withDiagnostics(issues.Issue{
		Agent:   p.opts.Agent,
		Kind:    c.Kind,
		Message: c.Message,
	}))
	return true
}

// WaitForElement polls until selector is visible or timeout elapses. On
// timeout it records ELEMENT_MISSING with a screenshot and returns false.
func (p *Prober) WaitForElement(ctx context.Context, selector string, timeout time.Duration) bool {
	policy := poll.Within(timeout, p.opts.ElementPoll, poll.ActionIssue)
	out, err := policy.Wait(ctx, p.clock, func() (bool, error) {
		return p.page.Visible(selector)
	})
	if err != nil {
		p.log.Debugf("wait for %s interrupted: %v", selector, err)
		return false
	}
	if out.Met {
		p.log.Debugf("found %s after %d checks", selector, out.Attempts)
		return true
	}

	msg := fmt.Sprintf("Element %s not visible after %s", selector, timeout)
	if out.LastErr != nil {
		msg = fmt.Sprintf("%s (last error: %v)", msg, out.LastErr)
	}
	p.Capture(ctx, issues.KindElementMissing, msg)
	return false
}

// HasProgressed reports whether the visible text shows a round marker or
// is long enough to count as a populated game screen. False records STUCK.
func (p *Prober) HasProgressed(ctx context.Context) bool {
	text, err := p.visibleText()
	if err != nil {
		p.log.Warningf("progress check failed: %v", err)
		p.sink.Record(p.opts.Agent, issues.KindStuck, "Could not read page to check progress: %v", err)
		return false
	}

	if p.opts.ProgressPattern != nil && p.opts.ProgressPattern.MatchString(text) {
		return true
	}
	chars := utf8.RuneCountInString(text)
	if chars > p.opts.ProgressTextLength {
		return true
	}

	p.log.Warningf("game does not appear to progress")
	p.sink.Add(p.withDiagnostics(issues.Issue{
		Agent:   p.opts.Agent,
		Kind:    issues.KindStuck,
		Message: fmt.Sprintf("No round marker and only %d characters of text", chars),
	}))
	return false
}

// Capture records an issue of kind with a screenshot and the page URL and
// title attached.
func (p *Prober) Capture(ctx context.Context, kind issues.Kind, message string) issues.Issue {
	p.log.Warningf("%s: %s", kind, message)
	issue := issues.Issue{
		Agent:      p.opts.Agent,
		Kind:       kind,
		Message:    message,
		Screenshot: p.screenshot(),
	}
	return p.sink.Add(p.withDiagnostics(issue))
}

func (p *Prober) withDiagnostics(issue issues.Issue) issues.Issue {
	issue.URL = p.page.URL()
	if title, err := p.page.Title(); err == nil {
		issue.Title = title
	}
	return issue
}

func (p *Prober) visibleText() (string, error) {
	raw, err := p.page.Content()
	if err != nil {
		return "", err
	}
	return browser.VisibleText(raw)
}

// screenshot saves a full-page capture and returns its path, or "" when
// disabled or failed.
func (p *Prober) screenshot() string {
	if p.opts.ArtifactsDir == "" {
		return ""
	}

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	name := fmt.Sprintf("%s-%s-%03d.png", fileSafe(p.opts.Agent), p.clock.Now().Format(screenshotTimeFormat), seq)
	path := filepath.Join(p.opts.ArtifactsDir, name)
	if err := p.page.Screenshot(path); err != nil {
		p.log.Warningf("screenshot failed: %v", err)
		return ""
	}
	p.log.Debugf("screenshot saved to %s", path)
	return path
}

func fileSafe(name string) string {
	if name == "" {
		return "agent"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
