package probe

import (
	"context"

	"github.com/entrhq/partyprobe/pkg/issues"
)

// UIState is the screen a page appears to show.
type UIState string

const (
	StateBlank      UIState = "blank"
	StateMenu       UIState = "menu"
	StateLobby      UIState = "lobby"
	StateSuggesting UIState = "suggesting"
	StateVoting     UIState = "voting"
	StateObserving  UIState = "observing"
	StateResults    UIState = "results"
	StateUnknown    UIState = "unknown"
)

// State infers the current screen without recording anything. It is meant
// for transition logging, not for decisions.
func (p *Prober) State(ctx context.Context) UIState {
	c := p.classify()
	if c.Err != nil {
		return StateUnknown
	}
	if issues.IsBlankKind(c.Kind) {
		return StateBlank
	}

	sel := p.opts.Selectors
	if p.visible(sel.Results) {
		return StateResults
	}
	if p.present(sel.VoteButtons) || p.present(sel.VoteInput) {
		return StateVoting
	}
	if p.visible(sel.AnswerInput) {
		return StateSuggesting
	}
	if p.visible(sel.StartGame) || p.visible(sel.Lobby) {
		return StateLobby
	}
	if p.visible(sel.PlayButton) || p.visible(sel.NameInput) {
		return StateMenu
	}

	if text, err := p.visibleText(); err == nil && p.opts.ProgressPattern != nil && p.opts.ProgressPattern.MatchString(text) {
		return StateObserving
	}
	return StateUnknown
}

func (p *Prober) visible(selector string) bool {
	if selector == "" {
		return false
	}
	ok, err := p.page.Visible(selector)
	return err == nil && ok
}

func (p *Prober) present(selector string) bool {
	if selector == "" {
		return false
	}
	n, err := p.page.Count(selector)
	return err == nil && n > 0
}
