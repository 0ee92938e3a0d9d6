// Package capture implements the capture state machine that watches raw
// keyboard events and decides when an abbreviation has been typed and
// confirmed.
//
// The machine is single-threaded: it is meant to be driven by whichever
// goroutine owns the platform key hook (see internal/platform), and it
// never blocks on anything but a settings read. It holds no lock of its
// own — the capture buffer belongs exclusively to the calling goroutine.
package capture

import (
	"golang.org/x/text/unicode/norm"

	"github.com/pabueco/typls/internal/platform"
	"github.com/pabueco/typls/internal/settings"
)

// Signal is emitted when a capture terminates and an expansion should be
// attempted. It is consumed exactly once by the expansion engine.
type Signal struct {
	// Sequence is the captured text, not including the trigger string or
	// any confirmation character.
	Sequence string

	// Append is text that should be echoed back after the expansion (a
	// confirm character the user typed, when confirm.append is set).
	Append string

	// AppendEnter indicates Return should be replayed after the expansion.
	AppendEnter bool
}

// Machine is the capture state machine described in spec.md §4.3. It is
// not safe for concurrent use; a single goroutine should own it.
type Machine struct {
	sequence     string
	isCapturing  bool
	settingsFunc func() settings.Settings
}

// New creates a Machine that reads settings via the given accessor on every
// event. The accessor must be cheap and non-blocking in the steady state
// (settings.Store.Current satisfies this).
func New(settingsFunc func() settings.Settings) *Machine {
	return &Machine{settingsFunc: settingsFunc}
}

// IsCapturing reports whether the machine is currently in the Capturing
// state. Exposed mainly for tests and diagnostics.
func (m *Machine) IsCapturing() bool {
	return m.isCapturing
}

// Sequence returns the current capture buffer. Exposed mainly for tests.
func (m *Machine) Sequence() string {
	return m.sequence
}

// reset clears the buffer and returns to Idle. The buffer-empty-when-idle
// invariant (spec.md §3) is maintained by routing every transition to Idle
// through this function.
func (m *Machine) reset() {
	m.sequence = ""
	m.isCapturing = false
}

// Handle processes one keyboard event and returns a non-nil Signal when an
// expansion should fire. It implements the per-event decision table from
// spec.md §4.3, evaluated top to bottom with the first match winning.
func (m *Machine) Handle(ev platform.Event) *Signal {
	s := m.settingsFunc()

	// 1. No trigger configured: the machine never reacts.
	if s.Trigger.String == "" {
		return nil
	}

	switch ev.Type {
	case platform.KeyPress(platform.KeyRightArrow), platform.KeyPress(platform.KeyReturn):
		return m.handleConfirmKey(ev, s)
	case platform.KeyPress(platform.KeyEscape):
		if m.isCapturing {
			m.reset()
		}
		return nil
	case platform.KeyPress(platform.KeyBackspace):
		return m.handleBackspace()
	}

	if ev.Name == "" {
		return nil
	}

	if m.isCapturing {
		return m.handleCapturingChar(ev.Name, s)
	}

	if normalize(ev.Name) == normalize(s.Trigger.String) {
		m.sequence = ""
		m.isCapturing = true
	}
	return nil
}

// handleConfirmKey implements decision-table step 2: Return/RightArrow end
// a capture only when the matching confirm flag is enabled.
func (m *Machine) handleConfirmKey(ev platform.Event, s settings.Settings) *Signal {
	if !m.isCapturing {
		return nil
	}

	isReturn := ev.Type == platform.KeyPress(platform.KeyReturn)
	if isReturn && !s.Confirm.KeyEnter {
		return nil
	}
	if !isReturn && !s.Confirm.KeyRightArrow {
		return nil
	}

	sig := &Signal{Sequence: m.sequence, AppendEnter: isReturn}
	m.reset()
	return sig
}

// handleBackspace implements decision-table step 4.
func (m *Machine) handleBackspace() *Signal {
	if !m.isCapturing {
		return nil
	}
	if m.sequence == "" {
		m.reset()
		return nil
	}
	m.sequence = popLastChar(m.sequence)
	return nil
}

// handleCapturingChar implements decision-table steps 6 and 7: confirm
// characters terminate the capture, anything else is appended and may
// trigger confirm.auto.
func (m *Machine) handleCapturingChar(name string, s settings.Settings) *Signal {
	if isConfirmChar(name, s.Confirm.Chars) {
		sig := &Signal{Sequence: m.sequence}
		if s.Confirm.Append {
			sig.Append = name
		}
		m.reset()
		return sig
	}

	m.sequence += name

	if s.Confirm.Auto {
		if matched, ok := autoConfirmMatch(m.sequence, s.Expansions); ok {
			sig := &Signal{Sequence: matched}
			m.reset()
			return sig
		}
	}

	return nil
}

// isConfirmChar reports whether name is one of the configured confirmation
// graphemes, comparing under NFC normalization since both trigger and
// confirm values are documented as "a single grapheme or short string"
// rather than a single rune.
func isConfirmChar(name string, confirmChars []string) bool {
	n := normalize(name)
	for _, c := range confirmChars {
		if normalize(c) == n {
			return true
		}
	}
	return false
}

// autoConfirmMatch implements the confirm.auto rule from decision-table
// step 7: exactly one expansion may match the buffer exactly, exactly one
// expansion may have the buffer as a prefix (so they must be the same
// expansion), and its text must contain no variable placeholder.
func autoConfirmMatch(buffer string, expansions []settings.Expansion) (string, bool) {
	var exact *settings.Expansion
	exactCount := 0
	prefixCount := 0

	for i := range expansions {
		e := &expansions[i]
		if e.Abbr == buffer {
			exactCount++
			exact = e
		}
		if len(e.Abbr) >= len(buffer) && e.Abbr[:len(buffer)] == buffer {
			prefixCount++
		}
	}

	if exactCount != 1 || prefixCount != 1 || exact == nil {
		return "", false
	}
	if settings.HasVariablePlaceholder(exact.Text) {
		return "", false
	}
	return buffer, true
}

// popLastChar removes the last rune (not byte) from s, so multi-byte
// characters are erased as a single unit, matching one Backspace undoing
// one typed character.
func popLastChar(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// normalize applies NFC normalization so visually identical graphemes
// compare equal regardless of the composed/decomposed form the input
// source or the settings file happened to use.
func normalize(s string) string {
	return norm.NFC.String(s)
}
