//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ============================================================================
// Windows key hook: a low-level keyboard hook (WH_KEYBOARD_LL) via
// SetWindowsHookEx, driven from a dedicated message-loop thread as the OS
// requires. Implemented with golang.org/x/sys/windows + syscall.NewCallback
// rather than cgo, mirroring the pure-Go syscall style the corpus uses for
// its Windows Hello integration.
// ============================================================================

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx       = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx  = user32.NewProc("UnhookWindowsHookEx")
	procGetMessageW          = user32.NewProc("GetMessageW")
	procToUnicodeEx          = user32.NewProc("ToUnicodeEx")
	procGetKeyboardState     = user32.NewProc("GetKeyboardState")
	procGetKeyboardLayout    = user32.NewProc("GetKeyboardLayout")
	procSendInput            = user32.NewProc("SendInput")
	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadPID   = user32.NewProc("GetWindowThreadProcessId")

	kernel32                       = windows.NewLazySystemDLL("kernel32.dll")
	procQueryFullProcessImageNameW = kernel32.NewProc("QueryFullProcessImageNameW")
)

const (
	whKeyboardLL = 13
	hcAction     = 0

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	vkBack  = 0x08
	vkReturn = 0x0D
	vkEscape = 0x1B
	vkRight  = 0x27
)

// kbdllhookstruct mirrors the Win32 KBDLLHOOKSTRUCT.
type kbdllhookstruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// WindowsKeyHook installs a WH_KEYBOARD_LL global hook.
type WindowsKeyHook struct{}

// NewKeyHook returns the Windows KeyHook implementation.
func NewKeyHook() KeyHook { return &WindowsKeyHook{} }

// Listen installs the hook and pumps the message loop on the calling
// goroutine, which the caller must keep locked to its OS thread
// (runtime.LockOSThread) since SetWindowsHookEx and GetMessage must run on
// the same thread.
func (h *WindowsKeyHook) Listen(ctx context.Context, sink func(Event)) error {
	var hookHandle uintptr
	var mu sync.Mutex

	callback := syscall.NewCallback(func(nCode int32, wParam uintptr, lParam uintptr) uintptr {
		if nCode == hcAction {
			kb := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			if wParam == wmKeyDown || wParam == wmSysKeyDown {
				sink(vkToEvent(kb.VkCode, kb.ScanCode))
			}
		}
		mu.Lock()
		h := hookHandle
		mu.Unlock()
		ret, _, _ := procCallNextHookEx.Call(h, uintptr(nCode), wParam, lParam)
		return ret
	})

	h0, _, err := procSetWindowsHookExW.Call(
		uintptr(whKeyboardLL),
		callback,
		0,
		0,
	)
	if h0 == 0 {
		return fmt.Errorf("platform: SetWindowsHookExW: %w", err)
	}
	mu.Lock()
	hookHandle = h0
	mu.Unlock()
	defer procUnhookWindowsHookEx.Call(h0)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()

	var msg struct {
		hwnd    uintptr
		message uint32
		wParam  uintptr
		lParam  uintptr
		time    uint32
		pt      struct{ x, y int32 }
	}
	for {
		select {
		case <-done:
			return nil
		default:
		}
		procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
	}
}

func vkToEvent(vk, scan uint32) Event {
	switch vk {
	case vkBack:
		return Event{Type: KeyPress(KeyBackspace)}
	case vkReturn:
		return Event{Type: KeyPress(KeyReturn), Name: "\n"}
	case vkEscape:
		return Event{Type: KeyPress(KeyEscape)}
	case vkRight:
		return Event{Type: KeyPress(KeyRightArrow)}
	}

	if ch, ok := vkToChar(vk, scan); ok {
		return Event{Type: Other, Name: string(ch)}
	}
	return Event{Type: Other}
}

// vkToChar renders a virtual-key code to its textual form under the
// current keyboard layout via ToUnicodeEx, honoring the live keyboard
// state (shift, caps lock, AltGr) the way the real OS input pipeline
// would.
func vkToChar(vk, scan uint32) (rune, bool) {
	var state [256]byte
	procGetKeyboardState.Call(uintptr(unsafe.Pointer(&state[0])))

	layout, _, _ := procGetKeyboardLayout.Call(0)

	var buf [8]uint16
	ret, _, _ := procToUnicodeEx.Call(
		uintptr(vk), uintptr(scan),
		uintptr(unsafe.Pointer(&state[0])),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)),
		0, layout,
	)
	if int32(ret) <= 0 {
		return 0, false
	}
	return rune(buf[0]), true
}

// ============================================================================
// Windows typer: SendInput for both key clicks and Unicode text insertion.
// ============================================================================

const (
	inputKeyboard  = 1
	kEventFKeyUp   = 0x0002
	kEventFUnicode = 0x0004
)

type keybdInput struct {
	Vk          uint16
	Scan        uint16
	Flags       uint32
	Time        uint32
	ExtraInfo   uintptr
}

type input struct {
	Type uint32
	_    uint32 // padding to align the union on amd64
	Ki   keybdInput
	_    [8]byte // pad union to the largest member's size
}

// WindowsTyper synthesizes input via SendInput.
type WindowsTyper struct{}

// NewTyper returns the Windows Typer implementation.
func NewTyper() *WindowsTyper { return &WindowsTyper{} }

func (t *WindowsTyper) sendKey(vk uint16, up bool) error {
	var flags uint32
	if up {
		flags = kEventFKeyUp
	}
	in := input{Type: inputKeyboard, Ki: keybdInput{Vk: vk, Flags: flags}}
	ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if ret == 0 {
		return fmt.Errorf("platform: SendInput: %w", err)
	}
	return nil
}

func (t *WindowsTyper) Key(k Key, mode ClickMode) error {
	vk, ok := keyToVK(k)
	if !ok {
		return fmt.Errorf("platform: unsupported key %d", k)
	}
	if mode == Press || mode == Click {
		if err := t.sendKey(vk, false); err != nil {
			return err
		}
	}
	if mode == Release || mode == Click {
		if err := t.sendKey(vk, true); err != nil {
			return err
		}
	}
	return nil
}

func keyToVK(k Key) (uint16, bool) {
	switch k {
	case KeyBackspace:
		return vkBack, true
	case KeyReturn:
		return vkReturn, true
	case KeyRightArrow:
		return vkRight, true
	case KeyEscape:
		return vkEscape, true
	}
	return 0, false
}

// Text inserts s as Unicode scan codes, the way every modern on-screen
// keyboard and IME does, so it works regardless of the active layout.
func (t *WindowsTyper) Text(s string) error {
	for _, r := range s {
		down := input{Type: inputKeyboard, Ki: keybdInput{Scan: uint16(r), Flags: kEventFUnicode}}
		up := input{Type: inputKeyboard, Ki: keybdInput{Scan: uint16(r), Flags: kEventFUnicode | kEventFKeyUp}}
		if ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&down)), unsafe.Sizeof(down)); ret == 0 {
			return fmt.Errorf("platform: SendInput text down: %w", err)
		}
		if ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&up)), unsafe.Sizeof(up)); ret == 0 {
			return fmt.Errorf("platform: SendInput text up: %w", err)
		}
	}
	return nil
}

// ============================================================================
// Windows window probe: GetForegroundWindow + QueryFullProcessImageName.
// ============================================================================

// WindowsWindowProbe reads the foreground window via Win32 calls.
type WindowsWindowProbe struct{}

// NewWindowProbe returns the Windows WindowProbe implementation.
func NewWindowProbe() *WindowsWindowProbe { return &WindowsWindowProbe{} }

func (p *WindowsWindowProbe) Current() (WindowInfo, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return WindowInfo{}, errors.New("platform: no foreground window")
	}

	var pid uint32
	procGetWindowThreadPID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return WindowInfo{}, errors.New("platform: could not resolve foreground window pid")
	}

	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return WindowInfo{}, fmt.Errorf("platform: OpenProcess: %w", err)
	}
	defer windows.CloseHandle(h)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	ret, _, err := procQueryFullProcessImageNameW.Call(
		uintptr(h), 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return WindowInfo{}, fmt.Errorf("platform: QueryFullProcessImageNameW: %w", err)
	}

	return WindowInfo{
		WindowID:    fmt.Sprintf("%d", hwnd),
		ProcessPath: windows.UTF16ToString(buf[:size]),
	}, nil
}
