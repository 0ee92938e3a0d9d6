//go:build darwin

package platform

// New returns the macOS KeyHook, Typer, and WindowProbe adapters.
func New() (KeyHook, Typer, WindowProbe, error) {
	return NewKeyHook(), NewTyper(), NewWindowProbe(), nil
}
