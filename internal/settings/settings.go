// Package settings holds the data model the capture and expansion engines
// read on every event (spec.md §3, §6.3): the trigger/confirm/variable
// configuration, the expansion list, and the optional app-scoped groups.
package settings

import (
	"encoding/json"
	"regexp"
)

// Settings is the complete, immutable configuration snapshot. A Settings
// value is never mutated in place; the engine only ever swaps one complete
// value for another (spec.md §3 invariant: "Settings snapshots are
// immutable once published; mutation only by full replacement").
type Settings struct {
	Trigger    TriggerSettings  `json:"trigger"`
	Confirm    ConfirmSettings  `json:"confirm"`
	Variables  VariableSettings `json:"variables"`
	Expansions []Expansion      `json:"expansions"`
	Groups     []Group          `json:"groups,omitempty"`
	ActiveGroup string          `json:"activeGroup,omitempty"`

	// extra preserves unrecognized top-level keys across a read-modify-write
	// round trip, per spec.md §6.3: "Unknown keys are preserved round-trip
	// but ignored by the engine."
	extra map[string]json.RawMessage
}

// TriggerSettings configures the string that starts a capture.
type TriggerSettings struct {
	// String is a single grapheme or short string. An empty value disables
	// the capture state machine entirely (spec.md §4.3 step 1).
	String string `json:"string"`
}

// ConfirmSettings configures how a capture ends.
type ConfirmSettings struct {
	Chars         []string `json:"chars"`
	KeyEnter      bool     `json:"keyEnter"`
	KeyRightArrow bool     `json:"keyRightArrow"`
	Append        bool     `json:"append"`
	Auto          bool     `json:"auto"`
}

// VariableSettings configures template placeholder parsing.
type VariableSettings struct {
	// Separator splits a captured sequence into abbreviation and
	// arguments. Must be non-empty; an empty separator makes any signal
	// that reaches the expansion engine structurally invalid (spec.md §7
	// kind 4) and it is silently ignored.
	Separator string `json:"separator"`
}

// Expansion maps an abbreviation to a template, optionally scoped to a
// Group.
type Expansion struct {
	ID    string `json:"id"`
	Abbr  string `json:"abbr"`
	Text  string `json:"text"`
	Group string `json:"group,omitempty"`
}

// Group names a set of applications a grouped Expansion is permitted in.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Apps []App  `json:"apps"`
}

// App identifies one application by platform and executable path.
type App struct {
	Path string `json:"path"`
	OS   string `json:"os"`
}

// looseVariablePattern matches any brace-enclosed, whitespace-free run,
// including {}, {=default}, and {name=default} — deliberately loose so
// confirm.auto never fires for a templated expansion (spec.md §9).
var looseVariablePattern = regexp.MustCompile(`\{[^\s}]*\}`)

// HasVariablePlaceholder reports whether text contains anything that looks
// like a template placeholder under the loose auto-confirm test.
func HasVariablePlaceholder(text string) bool {
	return looseVariablePattern.MatchString(text)
}

// DefaultConfirmChars is the factory confirmation character set.
var DefaultConfirmChars = []string{" ", ".", ";", "!", "?", ":", ","}

// Default returns the baked-in Settings used on first run and whenever a
// configuration file fails to parse (spec.md §6.3, §7 kind 1).
func Default() Settings {
	return Settings{
		Trigger: TriggerSettings{String: "'"},
		Confirm: ConfirmSettings{
			Chars:         append([]string(nil), DefaultConfirmChars...),
			KeyEnter:      true,
			KeyRightArrow: true,
			Append:        true,
			Auto:          false,
		},
		Variables: VariableSettings{Separator: "|"},
		Expansions: []Expansion{
			{ID: "typls", Abbr: "typls", Text: "Type less with typls: https://typls.app"},
		},
		Groups: []Group{},
	}
}

// jsonShape is the typed projection of Settings used for marshaling; it
// exists so UnmarshalJSON/MarshalJSON can merge known fields with the
// preserved `extra` map without infinite recursion through Settings'
// own (un)marshalers.
type jsonShape struct {
	Trigger     TriggerSettings  `json:"trigger"`
	Confirm     ConfirmSettings  `json:"confirm"`
	Variables   VariableSettings `json:"variables"`
	Expansions  []Expansion      `json:"expansions"`
	Groups      []Group          `json:"groups,omitempty"`
	ActiveGroup string           `json:"activeGroup,omitempty"`
}

var knownTopLevelKeys = map[string]bool{
	"trigger": true, "confirm": true, "variables": true,
	"expansions": true, "groups": true, "activeGroup": true,
}

// UnmarshalJSON decodes the recognized keys in §6.3 and stashes every
// other top-level key verbatim so a later MarshalJSON can restore them.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var shape jsonShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownTopLevelKeys[k] {
			extra[k] = v
		}
	}

	s.Trigger = shape.Trigger
	s.Confirm = shape.Confirm
	s.Variables = shape.Variables
	s.Expansions = shape.Expansions
	s.Groups = shape.Groups
	s.ActiveGroup = shape.ActiveGroup
	s.extra = extra
	return nil
}

// MarshalJSON re-emits the recognized keys plus whatever unrecognized keys
// were present the last time this value was parsed from disk.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.extra)+6)
	for k, v := range s.extra {
		out[k] = v
	}

	known, err := json.Marshal(jsonShape{
		Trigger: s.Trigger, Confirm: s.Confirm, Variables: s.Variables,
		Expansions: s.Expansions, Groups: s.Groups, ActiveGroup: s.ActiveGroup,
	})
	if err != nil {
		return nil, err
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, err
	}
	for k, v := range knownMap {
		out[k] = v
	}

	return json.Marshal(out)
}
