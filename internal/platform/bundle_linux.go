//go:build linux

package platform

// New returns the Linux KeyHook, Typer, and WindowProbe adapters. Typer
// construction can fail here (it opens /dev/uinput), so this is the one
// platform where New itself can return an error.
func New() (KeyHook, Typer, WindowProbe, error) {
	typer, err := NewTyper()
	if err != nil {
		return nil, nil, nil, err
	}
	return NewKeyHook(), typer, NewWindowProbe(), nil
}
