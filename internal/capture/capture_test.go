package capture

import (
	"testing"

	"github.com/pabueco/typls/internal/platform"
	"github.com/pabueco/typls/internal/settings"
)

func charEvent(s string) platform.Event {
	return platform.Event{Type: platform.Other, Name: s}
}

func keyEvent(k platform.Key) platform.Event {
	return platform.Event{Type: platform.KeyPress(k)}
}

func typeString(m *Machine, s string) *Signal {
	var last *Signal
	for _, r := range s {
		if sig := m.Handle(charEvent(string(r))); sig != nil {
			last = sig
		}
	}
	return last
}

func TestBufferEmptyWhenIdle(t *testing.T) {
	s := settings.Default()
	m := New(func() settings.Settings { return s })

	typeString(m, "'hi")
	m.Handle(keyEvent(platform.KeyEscape))

	if m.IsCapturing() {
		t.Fatal("expected Idle after Escape")
	}
	if m.Sequence() != "" {
		t.Fatalf("buffer = %q, want empty when Idle", m.Sequence())
	}
}

func TestNoTriggerConfiguredNeverCaptures(t *testing.T) {
	s := settings.Default()
	s.Trigger.String = ""
	m := New(func() settings.Settings { return s })

	sig := typeString(m, "'hi ")
	if sig != nil {
		t.Fatalf("expected no signal with trigger disabled, got %+v", sig)
	}
	if m.IsCapturing() {
		t.Fatal("expected machine to never enter Capturing without a trigger")
	}
}

// scenario 1: `'hi ` -> sequence "hi", append " ".
func TestScenario1ConfirmCharEndsCapture(t *testing.T) {
	s := settings.Default()
	m := New(func() settings.Settings { return s })

	sig := typeString(m, "'hi ")
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Sequence != "hi" || sig.Append != " " || sig.AppendEnter {
		t.Fatalf("got %+v", sig)
	}
	if m.IsCapturing() {
		t.Fatal("expected Idle after confirm")
	}
}

// scenario 2: `'hi` + RightArrow -> sequence "hi", no append.
func TestScenario2RightArrowConfirms(t *testing.T) {
	s := settings.Default()
	m := New(func() settings.Settings { return s })

	typeString(m, "'hi")
	sig := m.Handle(keyEvent(platform.KeyRightArrow))
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Sequence != "hi" || sig.Append != "" || sig.AppendEnter {
		t.Fatalf("got %+v", sig)
	}
}

// scenario 5: confirm.auto=true and a unique-prefix abbreviation fires
// without any confirm character.
func TestScenario5AutoConfirmOnUniquePrefix(t *testing.T) {
	s := settings.Default()
	s.Confirm.Auto = true
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "okay", Text: "ok"}}
	m := New(func() settings.Settings { return s })

	sig := typeString(m, "'okay")
	if sig == nil {
		t.Fatal("expected auto-confirm signal")
	}
	if sig.Sequence != "okay" || sig.Append != "" {
		t.Fatalf("got %+v", sig)
	}
}

func TestAutoConfirmDoesNotFireWithVariablePlaceholder(t *testing.T) {
	s := settings.Default()
	s.Confirm.Auto = true
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "sig", Text: "Yours, {}"}}
	m := New(func() settings.Settings { return s })

	sig := typeString(m, "'sig")
	if sig != nil {
		t.Fatalf("expected no auto-confirm for templated expansion, got %+v", sig)
	}
}

func TestAutoConfirmDoesNotFireWithAmbiguousPrefix(t *testing.T) {
	s := settings.Default()
	s.Confirm.Auto = true
	s.Expansions = []settings.Expansion{
		{ID: "1", Abbr: "ok", Text: "okay"},
		{ID: "2", Abbr: "okay", Text: "ok"},
	}
	m := New(func() settings.Settings { return s })

	sig := typeString(m, "'ok")
	if sig != nil {
		t.Fatalf("expected no auto-confirm while another abbr is still a longer prefix match, got %+v", sig)
	}
}

// scenario 7: confirm.keyEnter=false means Return never confirms; the
// buffer is retained.
func TestScenario7ReturnDisabledRetainsBuffer(t *testing.T) {
	s := settings.Default()
	s.Confirm.KeyEnter = false
	m := New(func() settings.Settings { return s })

	typeString(m, "'hi")
	sig := m.Handle(keyEvent(platform.KeyReturn))
	if sig != nil {
		t.Fatalf("expected no signal, got %+v", sig)
	}
	if !m.IsCapturing() || m.Sequence() != "hi" {
		t.Fatalf("expected buffer retained, got capturing=%v sequence=%q", m.IsCapturing(), m.Sequence())
	}
}

func TestBackspaceErasesLastCharacter(t *testing.T) {
	s := settings.Default()
	m := New(func() settings.Settings { return s })

	typeString(m, "'hit")
	m.Handle(keyEvent(platform.KeyBackspace))

	if m.Sequence() != "hi" {
		t.Fatalf("sequence = %q, want hi", m.Sequence())
	}
}

func TestBackspaceOnEmptyBufferExitsCapturing(t *testing.T) {
	s := settings.Default()
	m := New(func() settings.Settings { return s })

	m.Handle(charEvent("'"))
	m.Handle(keyEvent(platform.KeyBackspace))

	if m.IsCapturing() {
		t.Fatal("expected Idle after backspacing an empty capture buffer")
	}
}

func TestEscapeAbortsCapture(t *testing.T) {
	s := settings.Default()
	m := New(func() settings.Settings { return s })

	typeString(m, "'hi")
	sig := m.Handle(keyEvent(platform.KeyEscape))

	if sig != nil {
		t.Fatalf("expected no signal on escape, got %+v", sig)
	}
	if m.IsCapturing() {
		t.Fatal("expected Idle after Escape")
	}
}
