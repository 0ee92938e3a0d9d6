//go:build windows

package platform

// New returns the Windows KeyHook, Typer, and WindowProbe adapters.
func New() (KeyHook, Typer, WindowProbe, error) {
	return NewKeyHook(), NewTyper(), NewWindowProbe(), nil
}
