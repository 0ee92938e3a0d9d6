package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(filepath.Join(dir, "settings.json"))

	s, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Trigger.String != Default().Trigger.String {
		t.Errorf("expected default trigger, got %q", s.Trigger.String)
	}
}

func TestLoaderLoadMalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"trigger": {"string": "'"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLoader(path)
	if _, err := l.Load(); err == nil {
		t.Error("expected validation error for incomplete settings document")
	}
}

func TestLoaderWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeSettings(t, path, "'")

	l := NewLoader(path)
	if _, err := l.Load(); err != nil {
		t.Fatalf("initial Load: %v", err)
	}

	seen := make(chan Settings, 4)
	l.OnChange(func(s Settings) { seen <- s })

	if err := l.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer l.Close()

	writeSettings(t, path, ";")

	select {
	case s := <-seen:
		if s.Trigger.String != ";" {
			t.Errorf("reloaded trigger = %q, want ;", s.Trigger.String)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func writeSettings(t *testing.T, path, trigger string) {
	t.Helper()
	s := Default()
	s.Trigger.String = trigger
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
