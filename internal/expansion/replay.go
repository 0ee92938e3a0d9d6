package expansion

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/pabueco/typls/internal/capture"
	"github.com/pabueco/typls/internal/platform"
)

// replay implements step E: erase the typed sequence via Backspace and
// inject the substituted text, in the order spec.md §4.4 prescribes.
func (e *Engine) replay(sig capture.Signal, text string) {
	n := utf8.RuneCountInString(sig.Sequence) + utf8.RuneCountInString(sig.Append) + 1
	if sig.AppendEnter {
		n++
	}

	for i := 0; i < n; i++ {
		// Individual synthetic-keystroke failures are logged-and-discarded
		// per spec.md §7 kind 3; the loop continues so the remaining
		// deletions and the text insertion still have a chance to land.
		if err := e.typer.Key(platform.KeyBackspace, platform.Click); err != nil {
			slog.Warn("synthetic backspace failed", "error", err)
		}
	}

	if e.goos != "windows" {
		e.sleep(deletionSleep(n))
	}

	if err := e.typer.Text(text + sig.Append); err != nil {
		slog.Warn("synthetic text insertion failed", "error", err)
	}

	if sig.AppendEnter {
		if err := e.typer.Key(platform.KeyReturn, platform.Click); err != nil {
			slog.Warn("synthetic return failed", "error", err)
		}
	}
}

// deletionSleep implements the max(N*5, 50)ms rule from spec.md §4.4 step E.
func deletionSleep(n int) time.Duration {
	d := time.Duration(n*5) * time.Millisecond
	if d < 50*time.Millisecond {
		return 50 * time.Millisecond
	}
	return d
}
