// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"fmt"
	"sync"

	"github.com/entrhq/partyprobe/pkg/browser"
)

var _ browser.Page = (*Page)(nil)

// Call records one interaction with the fake page.
type Call struct {
	Op       string
	Selector string
	Value    string
	Nth      int
}

// Page is a scriptable fake. Static answers come from the maps; the On*
// hooks, when set, take precedence and let tests vary answers over time.
type Page struct {
	mu sync.Mutex

	HTML       string
	ContentErr error
	Counts     map[string]int
	TextsFor   map[string][]string
	VisibleFor map[string]bool
	PageURL    string
	PageTitle  string

	// NavigateErr is returned by Navigate
	NavigateErr error
	// ClickErr, when set, is returned for clicks on the given selector
	ClickErr map[string]error

	OnContent func() (string, error)
	OnCount   func(selector string) (int, error)
	OnVisible func(selector string) (bool, error)
	OnClick   func(selector string, nth int) error
	OnFill    func(selector, value string) error

	calls       []Call
	screenshots []string
}

// New creates an empty fake page.
func New() *Page {
	return &Page{
		Counts:     make(map[string]int),
		TextsFor:   make(map[string][]string),
		VisibleFor: make(map[string]bool),
		ClickErr:   make(map[string]error),
		PageURL:    "about:blank",
	}
}

func (p *Page) record(c Call) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

// Navigate records the navigation and updates the URL.
func (p *Page) Navigate(url string, _ browser.NavigateOptions) error {
	p.record(Call{Op: "navigate", Value: url})
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.mu.Lock()
	p.PageURL = url
	p.mu.Unlock()
	return nil
}

// Content returns HTML or the OnContent hook's answer.
func (p *Page) Content() (string, error) {
	if p.OnContent != nil {
		return p.OnContent()
	}
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

// Count returns Counts[selector] or the OnCount hook's answer.
func (p *Page) Count(selector string) (int, error) {
	if p.OnCount != nil {
		return p.OnCount(selector)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Counts[selector], nil
}

// Texts returns TextsFor[selector].
func (p *Page) Texts(selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.TextsFor[selector]...), nil
}

// Visible returns VisibleFor[selector] or the OnVisible hook's answer.
func (p *Page) Visible(selector string) (bool, error) {
	if p.OnVisible != nil {
		return p.OnVisible(selector)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.VisibleFor[selector], nil
}

// Click records the click.
func (p *Page) Click(selector string, nth int) error {
	p.record(Call{Op: "click", Selector: selector, Nth: nth})
	if p.OnClick != nil {
		return p.OnClick(selector, nth)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ClickErr[selector]
}

// Fill records the fill.
func (p *Page) Fill(selector, value string) error {
	p.record(Call{Op: "fill", Selector: selector, Value: value})
	if p.OnFill != nil {
		return p.OnFill(selector, value)
	}
	return nil
}

// Press records the key press.
func (p *Page) Press(selector, key string) error {
	p.record(Call{Op: "press", Selector: selector, Value: key})
	return nil
}

// Dispatch records the event.
func (p *Page) Dispatch(selector, event string) error {
	p.record(Call{Op: "dispatch", Selector: selector, Value: event})
	return nil
}

// Screenshot records the path without writing a file.
func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshots = append(p.screenshots, path)
	return nil
}

// URL returns PageURL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PageURL
}

// Title returns PageTitle.
func (p *Page) Title() (string, error) {
	return p.PageTitle, nil
}

// Calls returns every recorded interaction in order.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsOf returns the recorded interactions with the given op.
func (p *Page) CallsOf(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Screenshots returns every screenshot path requested.
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.screenshots...)
}

// Launcher hands out pre-built fake pages by agent name.
type Launcher struct {
	mu    sync.Mutex
	Pages map[string]*Page
	Errs  map[string]error

	launched []string
}

// NewLauncher creates a launcher serving pages.
func NewLauncher(pages map[string]*Page) *Launcher {
	return &Launcher{Pages: pages, Errs: make(map[string]error)}
}

// Launch returns the page registered for name.
func (l *Launcher) Launch(name string) (browser.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, name)
	if err := l.Errs[name]; err != nil {
		return nil, err
	}
	page, ok := l.Pages[name]
	if !ok {
		return nil, fmt.Errorf("no fake page for %q", name)
	}
	return page, nil
}

// Launched returns the agent names in launch order.
func (l *Launcher) Launched() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.launched...)
}
