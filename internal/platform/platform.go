// Package platform defines the narrow adapter interfaces the capture and
// expansion engines consume (spec.md §4.1, §6.1) and the shared event
// vocabulary used by every platform-specific implementation.
//
// Each adapter is intentionally small: KeyHook only ever produces events,
// Typer only ever consumes synthetic input requests, and WindowProbe only
// ever answers "what's focused right now." None of them know about
// abbreviations, templates, or settings — that knowledge lives in
// internal/capture and internal/expansion.
package platform

import "context"

// Key enumerates the subset of keys the capture state machine reacts to by
// identity. The platform hooks report every other key with the Other
// event type, distinguished only by its rendered Name.
type Key int

const (
	KeyOther Key = iota
	KeyReturn
	KeyRightArrow
	KeyEscape
	KeyBackspace
)

// EventType is either a key press/release tagged with a Key, or a
// catch-all Other for events the capture machine does not classify by
// identity (mouse clicks forwarded through the same hook, etc).
type EventType struct {
	kind byte // 'P' = press, 'R' = release, 'O' = other
	key  Key
}

// KeyPress constructs the event type for a key-press of k.
func KeyPress(k Key) EventType { return EventType{kind: 'P', key: k} }

// KeyRelease constructs the event type for a key-release of k.
func KeyRelease(k Key) EventType { return EventType{kind: 'R', key: k} }

// Other is the event type for input the hook does not classify.
var Other = EventType{kind: 'O'}

// IsPress reports whether e is a key-press event, and if so, which key.
func (e EventType) IsPress() (Key, bool) { return e.key, e.kind == 'P' }

// Event is a single keyboard event as delivered by a KeyHook. Name carries
// the textual rendering of the key under the current layout/modifier
// state; it is empty for events with no character representation (bare
// arrow keys, modifier-only presses).
type Event struct {
	Type EventType
	Name string
}

// KeyHook delivers a live, ordered stream of keyboard events for as long
// as the process runs. Listen blocks until ctx is canceled or an
// unrecoverable error occurs installing or running the hook; on platforms
// where the OS requires the hook to live on a specific thread, the
// implementation is responsible for running on that thread itself.
type KeyHook interface {
	Listen(ctx context.Context, sink func(Event)) error
}

// ClickMode selects how Typer.Key drives a key: as a full click (press +
// release), or as the press/release half independently. The capture and
// expansion engines only ever need Click, but the interface mirrors the
// platform adapters' native press/release primitives since some hook APIs
// only expose those.
type ClickMode int

const (
	Click ClickMode = iota
	Press
	Release
)

// Typer synthesizes keyboard input: individual key clicks (used to erase
// what the user typed) and arbitrary Unicode text insertion (used to emit
// the expansion). Both operations may fail; callers log and continue
// rather than treat a failure as fatal (spec.md §7, kind 3).
type Typer interface {
	Key(k Key, mode ClickMode) error
	Text(s string) error
}

// WindowInfo identifies the window currently holding input focus.
type WindowInfo struct {
	WindowID    string
	ProcessPath string
}

// WindowProbe answers a single question: what window is focused right
// now? It is called from a dedicated polling goroutine (internal/
// windowwatch); a transient failure is tolerated by the caller, which
// simply keeps the last known-good snapshot.
type WindowProbe interface {
	Current() (WindowInfo, error)
}
