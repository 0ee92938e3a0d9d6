// Package expansion implements the Expansion Engine (spec.md §4.4): it
// consumes capture signals, chooses the matching Expansion for the
// focused application, substitutes template variables, and drives a
// platform.Typer through the synthetic backspace/replay protocol.
package expansion

import (
	"runtime"
	"strings"
	"time"

	"github.com/pabueco/typls/internal/capture"
	"github.com/pabueco/typls/internal/platform"
	"github.com/pabueco/typls/internal/settings"
)

// WindowSnapshot is the subset of window-focus state the engine needs to
// pick among app-scoped candidates. windowwatch.Snapshot satisfies this
// shape; the engine takes it as plain fields to avoid an import cycle.
type WindowSnapshot struct {
	ProcessPath string
}

// Engine consumes capture.Signal values and performs the expansion or
// silently drops them, per the structurally-invalid cases in spec.md §7
// (empty separator, unknown abbreviation, no candidate left after
// group filtering).
type Engine struct {
	settingsFunc func() settings.Settings
	windowFunc   func() WindowSnapshot
	typer        platform.Typer
	sleep        func(time.Duration)
	goos         string

	// onExpand, if set, is called with the signal and the chosen
	// Expansion right before replay. It exists solely so an optional
	// observer (the expansion history trail) can record what fired
	// without the engine itself depending on that observer.
	onExpand func(capture.Signal, settings.Expansion)
}

// New creates an Engine. settingsFunc and windowFunc are called fresh for
// every signal so the engine always acts on the latest snapshot.
func New(settingsFunc func() settings.Settings, windowFunc func() WindowSnapshot, typer platform.Typer) *Engine {
	return &Engine{
		settingsFunc: settingsFunc,
		windowFunc:   windowFunc,
		typer:        typer,
		sleep:        time.Sleep,
		goos:         runtime.GOOS,
	}
}

// OnExpand registers a callback invoked with the signal and chosen
// Expansion every time the engine is about to replay an expansion. Only
// one observer is supported; a later call replaces an earlier one.
func (e *Engine) OnExpand(fn func(capture.Signal, settings.Expansion)) {
	e.onExpand = fn
}

// Run drains signals until the channel is closed, performing one
// expansion attempt per signal in receipt order (spec.md §4.5).
func (e *Engine) Run(signals <-chan capture.Signal) {
	for sig := range signals {
		e.Handle(sig)
	}
}

// Handle performs one expansion attempt for sig. It never returns an
// error, since the engine has no channel back to the user: a structurally
// invalid signal (spec.md §7 kind 4) is dropped silently, and a failed
// synthetic keystroke or text insertion (kind 3) is logged by replay and
// otherwise discarded.
func (e *Engine) Handle(sig capture.Signal) {
	s := e.settingsFunc()

	abbr, args, ok := parseArguments(sig.Sequence, s.Variables.Separator)
	if !ok {
		return
	}

	chosen, ok := selectCandidate(s, abbr, e.windowFunc(), e.goos)
	if !ok {
		return
	}

	if e.onExpand != nil {
		e.onExpand(sig, *chosen)
	}

	text := substitute(chosen.Text, args)
	e.replay(sig, text)
}

// parseArguments implements step A: split by the configured separator
// into an abbreviation and a list of raw argument strings. An empty
// separator is invalid configuration (spec.md §4.4 step A) and the
// signal is dropped.
func parseArguments(sequence, separator string) (abbr string, args []string, ok bool) {
	if separator == "" {
		return "", nil, false
	}
	parts := strings.Split(sequence, separator)
	return parts[0], parts[1:], true
}

// selectCandidate implements step B.
func selectCandidate(s settings.Settings, abbr string, win WindowSnapshot, goos string) (*settings.Expansion, bool) {
	var candidates []*settings.Expansion
	for i := range s.Expansions {
		if s.Expansions[i].Abbr == abbr {
			candidates = append(candidates, &s.Expansions[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	// Stable partition: grouped candidates first, in original order.
	sorted := make([]*settings.Expansion, 0, len(candidates))
	for _, c := range candidates {
		if c.Group != "" {
			sorted = append(sorted, c)
		}
	}
	for _, c := range candidates {
		if c.Group == "" {
			sorted = append(sorted, c)
		}
	}

	if s.ActiveGroup != "" {
		for _, c := range sorted {
			if c.Group == "" || c.Group == s.ActiveGroup {
				return c, true
			}
		}
		return nil, false
	}

	groupsByID := make(map[string]*settings.Group, len(s.Groups))
	for i := range s.Groups {
		groupsByID[s.Groups[i].ID] = &s.Groups[i]
	}

	for _, c := range sorted {
		if c.Group == "" {
			return c, true
		}
		g, found := groupsByID[c.Group]
		if !found {
			continue
		}
		if groupMatchesWindow(g, win, goos) {
			return c, true
		}
	}

	return nil, false
}

func groupMatchesWindow(g *settings.Group, win WindowSnapshot, goos string) bool {
	for _, app := range g.Apps {
		if app.OS == goos && app.Path == win.ProcessPath {
			return true
		}
	}
	return false
}
