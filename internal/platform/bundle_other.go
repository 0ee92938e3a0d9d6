//go:build !linux && !darwin && !windows

package platform

// New returns adapters that fail every operation: this operating system
// has no supported KeyHook/Typer/WindowProbe implementation.
func New() (KeyHook, Typer, WindowProbe, error) {
	return NewKeyHook(), NewTyper(), NewWindowProbe(), nil
}
