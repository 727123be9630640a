package browser

import (
	"github.com/playwright-community/playwright-go"
)

// Page is the narrow view of a live rendered document that agents use. Every
// selector is resolved by the browser; implementations must not cache state.
type Page interface {
	// Navigate loads url and waits according to opts.
	Navigate(url string, opts NavigateOptions) error

	// Content returns the serialized HTML of the current document.
	Content() (string, error)

	// Count returns the number of elements matching selector.
	Count(selector string) (int, error)

	// Texts returns the rendered text of every element matching selector, in
	// DOM order.
	Texts(selector string) ([]string, error)

	// Visible reports whether the first element matching selector is visible.
	Visible(selector string) (bool, error)

	// Click clicks the nth (zero-based) element matching selector.
	Click(selector string, nth int) error

	// Fill replaces the value of the first element matching selector.
	Fill(selector, value string) error

	// Press presses key on the first element matching selector. An empty
	// selector sends the key to the focused element.
	Press(selector, key string) error

	// Dispatch fires a DOM event of the given type on the first element
	// matching selector.
	Dispatch(selector, event string) error

	// Screenshot writes a full-page PNG to path.
	Screenshot(path string) error

	// URL returns the current page URL.
	URL() string

	// Title returns the current document title.
	Title() (string, error)
}

// Session represents an active browser session with its associated resources.
type Session struct {
	// Name is the unique identifier for this session, usually the agent name
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the current active page
	Page playwright.Page

	// ActionTimeout bounds individual clicks, fills and key presses
	ActionTimeout float64
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Args are extra command line switches passed to the browser process
	Args []string

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" toml:"width" json:"width"`
	Height int `yaml:"height" toml:"height" json:"height"`
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// Default values for various operations
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultActionTimeout  = 5000.0  // 5 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
	DefaultMaxSessions    = 8
)
