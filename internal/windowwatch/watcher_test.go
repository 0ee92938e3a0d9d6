package windowwatch

import (
	"testing"
	"time"

	"github.com/pabueco/typls/internal/platform"
)

func TestWatcherPublishesInitialSnapshotOnStart(t *testing.T) {
	probe := platform.NewFakeWindowProbe(platform.WindowInfo{WindowID: "1", ProcessPath: "/usr/bin/editor"})
	w := New(probe)
	w.Start()
	defer w.Stop()

	got := w.Current()
	if got.ProcessPath != "/usr/bin/editor" {
		t.Fatalf("Current() = %+v, want process path /usr/bin/editor", got)
	}
}

func TestWatcherPicksUpFocusChange(t *testing.T) {
	probe := platform.NewFakeWindowProbe(platform.WindowInfo{WindowID: "1", ProcessPath: "/usr/bin/a"})
	w := New(probe)
	w.Start()
	defer w.Stop()

	probe.Set(platform.WindowInfo{WindowID: "2", ProcessPath: "/usr/bin/b"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Current().ProcessPath == "/usr/bin/b" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher never observed focus change, last snapshot %+v", w.Current())
}

func TestWatcherIgnoresProbeFailures(t *testing.T) {
	probe := platform.NewFakeWindowProbe(platform.WindowInfo{WindowID: "1", ProcessPath: "/usr/bin/a"})
	w := New(probe)
	w.Start()
	defer w.Stop()

	probe.Fail(errProbeBoom)
	time.Sleep(50 * time.Millisecond)

	if got := w.Current().ProcessPath; got != "/usr/bin/a" {
		t.Fatalf("expected last good snapshot to be retained, got %q", got)
	}
}

var errProbeBoom = errBoom("boom")

type errBoom string

func (e errBoom) Error() string { return string(e) }
