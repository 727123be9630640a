package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

var _ Page = (*Session)(nil)

func (s *Session) close() {
	_ = s.Page.Close()    // Ignore errors, continue cleanup
	_ = s.Context.Close() // Ignore errors, continue cleanup
	_ = s.Browser.Close() // Ignore errors, continue cleanup
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Content returns the page HTML.
func (s *Session) Content() (string, error) {
	content, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("content read failed: %w", err)
	}
	return content, nil
}

// Count returns the number of elements matching selector.
func (s *Session) Count(selector string) (int, error) {
	n, err := s.Page.Locator(selector).Count()
	if err != nil {
		return 0, fmt.Errorf("count %q failed: %w", selector, err)
	}
	return n, nil
}

// Texts returns the inner text of every element matching selector.
func (s *Session) Texts(selector string) ([]string, error) {
	texts, err := s.Page.Locator(selector).AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("text extraction for %q failed: %w", selector, err)
	}
	return texts, nil
}

// Visible reports whether the first element matching selector is visible.
// It does not wait.
func (s *Session) Visible(selector string) (bool, error) {
	visible, err := s.Page.Locator(selector).First().IsVisible()
	if err != nil {
		return false, fmt.Errorf("visibility check for %q failed: %w", selector, err)
	}
	return visible, nil
}

// Click clicks the nth element matching selector.
func (s *Session) Click(selector string, nth int) error {
	timeout := s.ActionTimeout
	err := s.Page.Locator(selector).Nth(nth).Click(playwright.LocatorClickOptions{
		Timeout: &timeout,
	})
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill fills the first input matching selector with value.
func (s *Session) Fill(selector, value string) error {
	timeout := s.ActionTimeout
	err := s.Page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: &timeout,
	})
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Press presses key on the first element matching selector, or on the
// focused element when selector is empty.
func (s *Session) Press(selector, key string) error {
	var err error
	if selector == "" {
		err = s.Page.Keyboard().Press(key)
	} else {
		timeout := s.ActionTimeout
		err = s.Page.Locator(selector).First().Press(key, playwright.LocatorPressOptions{
			Timeout: &timeout,
		})
	}
	if err != nil {
		return fmt.Errorf("key press %q failed: %w", key, err)
	}
	return nil
}

// Dispatch fires a DOM event on the first element matching selector.
func (s *Session) Dispatch(selector, event string) error {
	if err := s.Page.Locator(selector).First().DispatchEvent(event, nil); err != nil {
		return fmt.Errorf("dispatch %q failed: %w", event, err)
	}
	return nil
}

// Screenshot writes a full-page screenshot to path, creating the directory
// if needed.
func (s *Session) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	_, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// Title returns the current document title.
func (s *Session) Title() (string, error) {
	return s.Page.Title()
}
