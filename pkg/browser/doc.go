// Package browser is the browser-automation collaborator used by partyprobe
// agents. It wraps Playwright behind the narrow Page interface so the probing
// and phase logic never depends on how the browser executes a query.
//
// # Architecture
//
// The package is built around three concepts:
//
//  1. Page: the operations an agent may perform against one live document
//  2. Session: a Playwright browser, context and page implementing Page
//  3. SessionManager: owns the Playwright driver and launches one Session per agent
//
// # Session Lifecycle
//
// Sessions are launched by name when an agent starts and are deliberately
// left open when the agent finishes so a human can inspect the final state of
// every window. They are closed only by SessionManager.Shutdown, which the
// entry point calls when the process is interrupted.
//
// # Selectors
//
// Selectors are Playwright selectors, so text and pseudo-class extensions
// such as `button:has-text("Play")`, `:visible` and `:text-matches()` are
// available. The target UI has no stable IDs; loose matching is expected.
//
// # Example Usage
//
//	manager := browser.NewSessionManager(browser.SessionOptions{Headless: false})
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	page, err := manager.Launch("Host")
//	if err != nil {
//	    return err
//	}
//	err = page.Navigate("http://localhost:3000", browser.NavigateOptions{
//	    WaitUntil: "networkidle",
//	})
package browser
