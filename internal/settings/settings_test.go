package settings

import (
	"encoding/json"
	"testing"
)

func TestDefaultValidatesAgainstSchema(t *testing.T) {
	data, err := json.Marshal(Default())
	if err != nil {
		t.Fatalf("marshal default: %v", err)
	}
	if err := ValidateDocument(data); err != nil {
		t.Fatalf("default settings failed schema validation: %v", err)
	}
}

func TestUnmarshalPreservesUnknownKeys(t *testing.T) {
	raw := []byte(`{
		"trigger": {"string": "'"},
		"confirm": {"chars": [" "], "keyEnter": true, "keyRightArrow": true, "append": true, "auto": false},
		"variables": {"separator": "|"},
		"expansions": [],
		"theme": "dark",
		"window": {"x": 10, "y": 20}
	}`)

	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var roundTripped map[string]json.RawMessage
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}

	if _, ok := roundTripped["theme"]; !ok {
		t.Error("expected unknown key \"theme\" to survive round trip")
	}
	if _, ok := roundTripped["window"]; !ok {
		t.Error("expected unknown key \"window\" to survive round trip")
	}
}

func TestHasVariablePlaceholder(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"plain text", false},
		{"hello {name}", true},
		{"hello {name=World}", true},
		{"curly brace without close {", false},
		{"{}", true},
		{"{has space}", false},
	}

	for _, tc := range cases {
		if got := HasVariablePlaceholder(tc.text); got != tc.want {
			t.Errorf("HasVariablePlaceholder(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestValidateDocumentRejectsMissingRequiredFields(t *testing.T) {
	raw := []byte(`{"trigger": {"string": "'"}}`)
	if err := ValidateDocument(raw); err == nil {
		t.Error("expected validation error for missing confirm/variables/expansions")
	}
}

func TestValidateDocumentRejectsInvalidJSON(t *testing.T) {
	if err := ValidateDocument([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
