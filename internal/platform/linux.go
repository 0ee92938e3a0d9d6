//go:build linux

package platform

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

// ============================================================================
// Linux key hook: reads raw key events from /dev/input/event* (evdev).
//
// This requires the process to be in the "input" group or run as root, the
// same constraint the corpus documents for its keystroke counter. Unlike
// the counter, we also need the *character* a key produces, so raw evdev
// codes are mapped through a layout table (US QWERTY; a real deployment
// would source this from the X/Wayland keymap instead).
// ============================================================================

// inputEvent mirrors struct input_event from linux/input.h.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evKey       = 1
	keyValueUp  = 0
	keyValueDn  = 1
	keyValueRep = 2
)

// Linux evdev key codes for the keys the capture machine tracks by identity.
const (
	kcEsc       = 1
	kcBackspace = 14
	kcEnter     = 28
	kcKpEnter   = 96
	kcRight     = 106
)

// LinuxKeyHook reads keyboard events from /dev/input.
type LinuxKeyHook struct {
	// DevicePaths overrides device discovery, primarily for testing.
	DevicePaths []string
}

// NewKeyHook returns the Linux KeyHook implementation.
func NewKeyHook() KeyHook { return &LinuxKeyHook{} }

func (h *LinuxKeyHook) Listen(ctx context.Context, sink func(Event)) error {
	devices := h.DevicePaths
	if devices == nil {
		found, err := findKeyboardDevices()
		if err != nil {
			return fmt.Errorf("platform: discover keyboard devices: %w", err)
		}
		devices = found
	}
	if len(devices) == 0 {
		return errors.New("platform: no keyboard input devices found (need 'input' group or root)")
	}

	var f *os.File
	var err error
	for _, dev := range devices {
		f, err = os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			break
		}
	}
	if f == nil {
		return fmt.Errorf("platform: open keyboard device: %w", err)
	}
	defer f.Close()

	shiftHeld := false
	eventSize := int(unsafe.Sizeof(inputEvent{}))
	buf := make([]byte, eventSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			continue
		}
		if n < eventSize {
			continue
		}

		typ := binary.LittleEndian.Uint16(buf[16:18])
		code := binary.LittleEndian.Uint16(buf[18:20])
		value := int32(binary.LittleEndian.Uint32(buf[20:24]))

		if typ != evKey {
			continue
		}
		if value == keyValueUp {
			if isShiftCode(code) {
				shiftHeld = false
			}
			continue
		}
		if isShiftCode(code) {
			shiftHeld = true
			continue
		}

		sink(evdevToEvent(code, shiftHeld))
	}
}

func isShiftCode(code uint16) bool { return code == 42 || code == 54 }

func evdevToEvent(code uint16, shift bool) Event {
	switch code {
	case kcEsc:
		return Event{Type: KeyPress(KeyEscape)}
	case kcBackspace:
		return Event{Type: KeyPress(KeyBackspace)}
	case kcEnter, kcKpEnter:
		return Event{Type: KeyPress(KeyReturn), Name: "\n"}
	case kcRight:
		return Event{Type: KeyPress(KeyRightArrow)}
	}

	if ch, ok := usLayout(code, shift); ok {
		return Event{Type: Other, Name: string(ch)}
	}
	return Event{Type: Other}
}

// findKeyboardDevices mirrors the corpus's /proc/bus/input/devices scan.
func findKeyboardDevices() ([]string, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var devices []string
	scanner := bufio.NewScanner(f)
	var handler string
	isKeyboard := false

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					handler = "/dev/input/" + part
				}
			}
		case strings.HasPrefix(line, "B: KEY="):
			isKeyboard = len(line) > 10
		case line == "":
			if isKeyboard && handler != "" {
				devices = append(devices, handler)
			}
			handler = ""
			isKeyboard = false
		}
	}

	matches, _ := filepath.Glob("/dev/input/by-id/*-kbd")
	devices = append(devices, matches...)
	return devices, nil
}

// ============================================================================
// Linux typer: writes synthetic events through /dev/uinput.
// ============================================================================

const (
	uinputMaxNameSize = 80
	uiSetEvBit        = 0x40045564
	uiSetKeyBit       = 0x40045565
	uiDevCreate       = 0x5501
	uiDevDestroy      = 0x5502
	evSyn            = 0x00
	synReport        = 0
)

type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         [8]uint16
	EffectsMax uint32
	Absmax     [64]int32
	Absmin     [64]int32
	Absfuzz    [64]int32
	Absflat    [64]int32
}

// LinuxTyper synthesizes input via /dev/uinput.
type LinuxTyper struct {
	f *os.File
}

// NewTyper returns the Linux Typer implementation, creating a uinput
// virtual keyboard device. Requires access to /dev/uinput (input group or
// root), the same permission class as the key hook.
func NewTyper() (*LinuxTyper, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("platform: open /dev/uinput: %w", err)
	}

	ioctl(f, uiSetEvBit, evKey)
	ioctl(f, uiSetEvBit, evSyn)
	for code := 1; code < 250; code++ {
		ioctl(f, uiSetKeyBit, uintptr(code))
	}

	var dev uinputUserDev
	copy(dev.Name[:], "typls-virtual-keyboard")
	if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
		f.Close()
		return nil, fmt.Errorf("platform: create uinput device: %w", err)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uiDevCreate, 0); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("platform: UI_DEV_CREATE: %w", errno)
	}

	return &LinuxTyper{f: f}, nil
}

func ioctl(f *os.File, req, arg uintptr) {
	unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, arg)
}

func (t *LinuxTyper) emit(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	return binary.Write(t.f, binary.LittleEndian, &ev)
}

func (t *LinuxTyper) sync() error { return t.emit(evSyn, synReport, 0) }

// Key clicks (or presses/releases) one of the identity keys.
func (t *LinuxTyper) Key(k Key, mode ClickMode) error {
	code, ok := keyToEvdevCode(k)
	if !ok {
		return fmt.Errorf("platform: unsupported key %d", k)
	}
	if mode == Press || mode == Click {
		if err := t.emit(evKey, code, keyValueDn); err != nil {
			return err
		}
		if err := t.sync(); err != nil {
			return err
		}
	}
	if mode == Release || mode == Click {
		if err := t.emit(evKey, code, keyValueUp); err != nil {
			return err
		}
		if err := t.sync(); err != nil {
			return err
		}
	}
	return nil
}

func keyToEvdevCode(k Key) (uint16, bool) {
	switch k {
	case KeyBackspace:
		return kcBackspace, true
	case KeyReturn:
		return kcEnter, true
	case KeyRightArrow:
		return kcRight, true
	case KeyEscape:
		return kcEsc, true
	}
	return 0, false
}

// Text inserts s one rune at a time by emitting the US-layout keycode for
// each rune (with a shift press/release when the rune is uppercase or a
// shifted symbol). Runes outside the table are skipped; a real deployment
// would fall back to Unicode-input key combinations per desktop
// environment.
func (t *LinuxTyper) Text(s string) error {
	for _, r := range s {
		code, shift, ok := usLayoutReverse(r)
		if !ok {
			continue
		}
		if shift {
			if err := t.emit(evKey, 42, keyValueDn); err != nil {
				return err
			}
		}
		if err := t.emit(evKey, code, keyValueDn); err != nil {
			return err
		}
		if err := t.sync(); err != nil {
			return err
		}
		if err := t.emit(evKey, code, keyValueUp); err != nil {
			return err
		}
		if shift {
			if err := t.emit(evKey, 42, keyValueUp); err != nil {
				return err
			}
		}
		if err := t.sync(); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down the virtual uinput device.
func (t *LinuxTyper) Close() error {
	unix.Syscall(unix.SYS_IOCTL, t.f.Fd(), uiDevDestroy, 0)
	return t.f.Close()
}

// ============================================================================
// Linux window probe: xdotool on X11, then GNOME Shell's D-Bus Eval
// interface as a fallback. No other tool or desktop interface is tried.
// ============================================================================

// LinuxWindowProbe queries the focused window via whichever mechanism the
// running session supports.
type LinuxWindowProbe struct {
	conn *dbus.Conn
}

// NewWindowProbe returns the Linux WindowProbe implementation. A D-Bus
// session connection is opened eagerly so Wayland desktops (where xdotool
// cannot see the active window at all) have a working fallback; failure
// to connect is not fatal, Current simply falls back to the X11 tools.
func NewWindowProbe() *LinuxWindowProbe {
	conn, _ := dbus.SessionBusPrivate()
	if conn != nil {
		if err := conn.Auth(nil); err != nil {
			conn.Close()
			conn = nil
		} else if err := conn.Hello(); err != nil {
			conn.Close()
			conn = nil
		}
	}
	return &LinuxWindowProbe{conn: conn}
}

func (p *LinuxWindowProbe) Current() (WindowInfo, error) {
	if info, err := p.currentX11(); err == nil {
		return info, nil
	}
	if p.conn != nil {
		if info, err := p.currentGnomeShell(); err == nil {
			return info, nil
		}
	}
	return WindowInfo{}, errors.New("platform: no focus backend available")
}

func (p *LinuxWindowProbe) currentX11() (WindowInfo, error) {
	out, err := exec.Command("xdotool", "getactivewindow").Output()
	if err != nil {
		return WindowInfo{}, err
	}
	windowID := strings.TrimSpace(string(out))

	pidOut, err := exec.Command("xdotool", "getwindowpid", windowID).Output()
	if err != nil {
		return WindowInfo{}, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidOut)))
	if err != nil {
		return WindowInfo{}, err
	}

	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return WindowInfo{}, err
	}

	return WindowInfo{WindowID: windowID, ProcessPath: path}, nil
}

// currentGnomeShell asks the GNOME Shell D-Bus Eval interface for the
// focused window's PID, the same session-bus pattern the corpus's IBus
// engine uses for desktop integration, then resolves PID to an executable
// path via /proc.
func (p *LinuxWindowProbe) currentGnomeShell() (WindowInfo, error) {
	obj := p.conn.Object("org.gnome.Shell", "/org/gnome/Shell")
	script := `global.display.focus_window ? global.display.focus_window.get_pid() : 0`

	var success bool
	var result string
	if err := obj.Call("org.gnome.Shell.Eval", 0, script).Store(&success, &result); err != nil {
		return WindowInfo{}, err
	}
	if !success {
		return WindowInfo{}, errors.New("platform: gnome shell eval failed")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(result))
	if err != nil || pid <= 0 {
		return WindowInfo{}, errors.New("platform: no focused window")
	}
	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return WindowInfo{}, err
	}
	return WindowInfo{WindowID: strconv.Itoa(pid), ProcessPath: path}, nil
}
