//go:build !linux && !darwin && !windows

package platform

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("platform: no adapter implementation for this operating system")

type unsupportedKeyHook struct{}

// NewKeyHook returns a KeyHook that fails immediately on unsupported
// platforms. Adapter install failure is fatal per spec.md §7 kind 2.
func NewKeyHook() KeyHook { return unsupportedKeyHook{} }

func (unsupportedKeyHook) Listen(ctx context.Context, sink func(Event)) error {
	return errUnsupported
}

type unsupportedTyper struct{}

// NewTyper returns a Typer that fails every operation on unsupported
// platforms.
func NewTyper() *unsupportedTyper { return &unsupportedTyper{} }

func (*unsupportedTyper) Key(k Key, mode ClickMode) error { return errUnsupported }
func (*unsupportedTyper) Text(s string) error             { return errUnsupported }

type unsupportedWindowProbe struct{}

// NewWindowProbe returns a WindowProbe that always fails on unsupported
// platforms.
func NewWindowProbe() *unsupportedWindowProbe { return &unsupportedWindowProbe{} }

func (*unsupportedWindowProbe) Current() (WindowInfo, error) { return WindowInfo{}, errUnsupported }
