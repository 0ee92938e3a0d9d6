package platform

import (
	"context"
	"sync"
)

// FakeKeyHook replays a fixed sequence of events, one per Listen call, for
// deterministic tests of anything built on top of a KeyHook.
type FakeKeyHook struct {
	Events []Event
}

// Listen feeds every recorded event to sink in order, then blocks until ctx
// is canceled, mirroring a real hook's "runs until shutdown" contract.
func (f *FakeKeyHook) Listen(ctx context.Context, sink func(Event)) error {
	for _, ev := range f.Events {
		sink(ev)
	}
	<-ctx.Done()
	return nil
}

// FakeTyper records every Key/Text call instead of touching real input,
// for asserting the exact replay protocol (spec.md §4.4 step E) in tests.
type FakeTyper struct {
	mu    sync.Mutex
	Clicks []KeyClick
	Texts  []string

	// FailKey/FailText, when set, are returned instead of nil to exercise
	// the "adapter failure is logged and discarded" path (spec.md §7 kind 3).
	FailKey  error
	FailText error
}

// KeyClick records one Typer.Key invocation.
type KeyClick struct {
	Key  Key
	Mode ClickMode
}

func (f *FakeTyper) Key(k Key, mode ClickMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, KeyClick{Key: k, Mode: mode})
	return f.FailKey
}

func (f *FakeTyper) Text(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Texts = append(f.Texts, s)
	return f.FailText
}

// BackspaceCount returns how many full Backspace clicks were recorded.
func (f *FakeTyper) BackspaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Clicks {
		if c.Key == KeyBackspace && c.Mode == Click {
			n++
		}
	}
	return n
}

// FakeWindowProbe returns a fixed WindowInfo/error pair, settable
// concurrently to simulate focus changes mid-test.
type FakeWindowProbe struct {
	mu   sync.Mutex
	info WindowInfo
	err  error
}

// NewFakeWindowProbe returns a probe that always reports info.
func NewFakeWindowProbe(info WindowInfo) *FakeWindowProbe {
	return &FakeWindowProbe{info: info}
}

func (f *FakeWindowProbe) Current() (WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, f.err
}

// Set updates the window the probe reports, simulating a focus change.
func (f *FakeWindowProbe) Set(info WindowInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = info
	f.err = nil
}

// Fail makes every Current call return err instead of a snapshot until
// the next Set.
func (f *FakeWindowProbe) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
