package expansion

import (
	"testing"
	"time"

	"github.com/pabueco/typls/internal/capture"
	"github.com/pabueco/typls/internal/platform"
	"github.com/pabueco/typls/internal/settings"
)

func newTestEngine(s settings.Settings, win WindowSnapshot, typer *platform.FakeTyper) *Engine {
	e := New(func() settings.Settings { return s }, func() WindowSnapshot { return win }, typer)
	e.sleep = func(time.Duration) {}
	return e
}

// scenario 1: `'hi ` -> 4x Backspace, insert "hello "
func TestHandleScenario1SimpleExpansion(t *testing.T) {
	s := settings.Default()
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "hi", Text: "hello"}}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{}, typer)

	e.Handle(capture.Signal{Sequence: "hi", Append: " "})

	if got := typer.BackspaceCount(); got != 4 {
		t.Errorf("backspaces = %d, want 4", got)
	}
	if len(typer.Texts) != 1 || typer.Texts[0] != "hello " {
		t.Errorf("texts = %v, want [\"hello \"]", typer.Texts)
	}
}

// scenario 2: `'hi` + RightArrow -> 3x Backspace, insert "hello"
func TestHandleScenario2RightArrowConfirm(t *testing.T) {
	s := settings.Default()
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "hi", Text: "hello"}}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{}, typer)

	e.Handle(capture.Signal{Sequence: "hi"})

	if got := typer.BackspaceCount(); got != 3 {
		t.Errorf("backspaces = %d, want 3", got)
	}
	if len(typer.Texts) != 1 || typer.Texts[0] != "hello" {
		t.Errorf("texts = %v, want [\"hello\"]", typer.Texts)
	}
}

// scenario 3: `'sig|Ada ` -> 9x Backspace, insert "Yours, Ada "
func TestHandleScenario3PositionalVariable(t *testing.T) {
	s := settings.Default()
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "sig", Text: "Yours, {}"}}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{}, typer)

	e.Handle(capture.Signal{Sequence: "sig|Ada", Append: " "})

	if got := typer.BackspaceCount(); got != 9 {
		t.Errorf("backspaces = %d, want 9", got)
	}
	if len(typer.Texts) != 1 || typer.Texts[0] != "Yours, Ada " {
		t.Errorf("texts = %v, want [\"Yours, Ada \"]", typer.Texts)
	}
}

// scenario 4: `'url|path=x ` -> insert "https://example.com/x ". The
// backspace count follows the deletion equation in spec.md §4.4 step E:
// len(sequence) + len(append) + 1, i.e. 10 + 1 + 1 = 12.
func TestHandleScenario4NamedVariableWithDefault(t *testing.T) {
	s := settings.Default()
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "url", Text: "https://{host=example.com}/{path}"}}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{}, typer)

	e.Handle(capture.Signal{Sequence: "url|path=x", Append: " "})

	if got := typer.BackspaceCount(); got != 12 {
		t.Errorf("backspaces = %d, want 12", got)
	}
	if len(typer.Texts) != 1 || typer.Texts[0] != "https://example.com/x " {
		t.Errorf("texts = %v, want [\"https://example.com/x \"]", typer.Texts)
	}
}

// scenario 6: grouped candidate wins when its group matches the active window.
func TestHandleScenario6GroupPriority(t *testing.T) {
	s := settings.Default()
	s.Groups = []settings.Group{{ID: "g1", Name: "Group", Apps: []settings.App{{Path: "/usr/bin/app", OS: "linux"}}}}
	s.Expansions = []settings.Expansion{
		{ID: "1", Abbr: "hi", Text: "hola", Group: "g1"},
		{ID: "2", Abbr: "hi", Text: "hello"},
	}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{ProcessPath: "/usr/bin/app"}, typer)
	e.goos = "linux"

	e.Handle(capture.Signal{Sequence: "hi", Append: " "})

	if got := typer.BackspaceCount(); got != 4 {
		t.Errorf("backspaces = %d, want 4", got)
	}
	if len(typer.Texts) != 1 || typer.Texts[0] != "hola " {
		t.Errorf("texts = %v, want [\"hola \"]", typer.Texts)
	}
}

func TestHandleUngroupedFallbackWhenWindowDoesNotMatch(t *testing.T) {
	s := settings.Default()
	s.Groups = []settings.Group{{ID: "g1", Name: "Group", Apps: []settings.App{{Path: "/usr/bin/app", OS: "linux"}}}}
	s.Expansions = []settings.Expansion{
		{ID: "1", Abbr: "hi", Text: "hola", Group: "g1"},
		{ID: "2", Abbr: "hi", Text: "hello"},
	}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{ProcessPath: "/usr/bin/other"}, typer)
	e.goos = "linux"

	e.Handle(capture.Signal{Sequence: "hi", Append: " "})

	if len(typer.Texts) != 1 || typer.Texts[0] != "hello " {
		t.Errorf("texts = %v, want [\"hello \"]", typer.Texts)
	}
}

func TestHandleNoMatchProducesNoOutput(t *testing.T) {
	s := settings.Default()
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{}, typer)

	e.Handle(capture.Signal{Sequence: "unknown"})

	if len(typer.Clicks) != 0 || len(typer.Texts) != 0 {
		t.Errorf("expected no synthetic output, got clicks=%v texts=%v", typer.Clicks, typer.Texts)
	}
}

func TestHandleEmptySeparatorIsIgnored(t *testing.T) {
	s := settings.Default()
	s.Variables.Separator = ""
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "hi", Text: "hello"}}
	typer := &platform.FakeTyper{}
	e := newTestEngine(s, WindowSnapshot{}, typer)

	e.Handle(capture.Signal{Sequence: "hi"})

	if len(typer.Texts) != 0 {
		t.Errorf("expected no output for invalid separator config, got %v", typer.Texts)
	}
}

func TestHandleWindowsSkipsSleep(t *testing.T) {
	s := settings.Default()
	s.Expansions = []settings.Expansion{{ID: "1", Abbr: "hi", Text: "hello"}}
	typer := &platform.FakeTyper{}
	e := New(func() settings.Settings { return s }, func() WindowSnapshot { return WindowSnapshot{} }, typer)
	e.goos = "windows"
	slept := false
	e.sleep = func(time.Duration) { slept = true }

	e.Handle(capture.Signal{Sequence: "hi", Append: " "})

	if slept {
		t.Error("expected sleep to be skipped on windows")
	}
}

func TestDeletionSleepFormula(t *testing.T) {
	cases := []struct {
		n    int
		want time.Duration
	}{
		{1, 50 * time.Millisecond},
		{9, 50 * time.Millisecond},
		{10, 50 * time.Millisecond},
		{11, 55 * time.Millisecond},
		{20, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := deletionSleep(tc.n); got != tc.want {
			t.Errorf("deletionSleep(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}
