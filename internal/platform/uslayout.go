//go:build linux || darwin

package platform

// usLayout and usLayoutReverse implement a minimal US-QWERTY mapping
// between Linux evdev keycodes and the characters they produce. A real
// deployment would read the active XKB/Wayland keymap instead; this table
// is deliberately small and exists to keep the evdev-based hook and
// uinput-based typer demonstrably round-trippable for common ASCII input.
var usLayoutTable = []struct {
	code       uint16
	lower      rune
	upper      rune
}{
	{16, 'q', 'Q'}, {17, 'w', 'W'}, {18, 'e', 'E'}, {19, 'r', 'R'},
	{20, 't', 'T'}, {21, 'y', 'Y'}, {22, 'u', 'U'}, {23, 'i', 'I'},
	{24, 'o', 'O'}, {25, 'p', 'P'},
	{30, 'a', 'A'}, {31, 's', 'S'}, {32, 'd', 'D'}, {33, 'f', 'F'},
	{34, 'g', 'G'}, {35, 'h', 'H'}, {36, 'j', 'J'}, {37, 'k', 'K'},
	{38, 'l', 'L'},
	{44, 'z', 'Z'}, {45, 'x', 'X'}, {46, 'c', 'C'}, {47, 'v', 'V'},
	{48, 'b', 'B'}, {49, 'n', 'N'}, {50, 'm', 'M'},
	{2, '1', '!'}, {3, '2', '@'}, {4, '3', '#'}, {5, '4', '$'},
	{6, '5', '%'}, {7, '6', '^'}, {8, '7', '&'}, {9, '8', '*'},
	{10, '9', '('}, {11, '0', ')'},
	{12, '-', '_'}, {13, '=', '+'},
	{26, '[', '{'}, {27, ']', '}'}, {43, '\\', '|'},
	{39, ';', ':'}, {40, '\'', '"'},
	{51, ',', '<'}, {52, '.', '>'}, {53, '/', '?'},
	{57, ' ', ' '},
}

func usLayout(code uint16, shift bool) (rune, bool) {
	for _, e := range usLayoutTable {
		if e.code == code {
			if shift {
				return e.upper, true
			}
			return e.lower, true
		}
	}
	return 0, false
}

func usLayoutReverse(r rune) (code uint16, shift bool, ok bool) {
	for _, e := range usLayoutTable {
		if e.lower == r {
			return e.code, false, true
		}
		if e.upper == r {
			return e.code, true, true
		}
	}
	return 0, false, false
}
