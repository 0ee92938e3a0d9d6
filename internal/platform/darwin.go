//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation -framework AppKit

#include <stdlib.h>
#include <ApplicationServices/ApplicationServices.h>
#import <AppKit/AppKit.h>

extern void typlsKeyEvent(uint16_t vk, uint16_t keycode, uint8_t isKeyDown);

static CFMachPortRef eventTap = NULL;
static CFRunLoopSourceRef runLoopSource = NULL;

CGEventRef typlsEventCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    if (type == kCGEventKeyDown || type == kCGEventKeyUp) {
        CGKeyCode keycode = (CGKeyCode)CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
        typlsKeyEvent(keycode, keycode, type == kCGEventKeyDown ? 1 : 0);
    }
    // Listen-only: never swallow or modify the user's real keystrokes.
    return event;
}

int typlsStartEventTap() {
    if (eventTap != NULL) {
        return 0;
    }
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp);
    eventTap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly, mask, typlsEventCallback, NULL);
    if (eventTap == NULL) {
        return -1; // likely missing Accessibility permission
    }
    runLoopSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, eventTap, 0);
    CFRunLoopAddSource(CFRunLoopGetCurrent(), runLoopSource, kCFRunLoopCommonModes);
    CGEventTapEnable(eventTap, true);
    return 0;
}

void typlsStopEventTap() {
    if (eventTap != NULL) {
        CGEventTapEnable(eventTap, false);
        CFRunLoopRemoveSource(CFRunLoopGetCurrent(), runLoopSource, kCFRunLoopCommonModes);
        CFRelease(runLoopSource);
        CFRelease(eventTap);
        eventTap = NULL;
        runLoopSource = NULL;
    }
}

void typlsSendKey(CGKeyCode code, int keyDown) {
    CGEventRef ev = CGEventCreateKeyboardEvent(NULL, code, keyDown);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
}

void typlsSendUnicode(const UniChar *chars, int length) {
    CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventKeyboardSetUnicodeString(down, (UniCharCount)length, chars);
    CGEventPost(kCGHIDEventTap, down);
    CFRelease(down);

    CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
    CGEventKeyboardSetUnicodeString(up, (UniCharCount)length, chars);
    CGEventPost(kCGHIDEventTap, up);
    CFRelease(up);
}

char *typlsFrontmostAppPath() {
    NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
    if (app == nil || app.bundleURL == nil) {
        return NULL;
    }
    return strdup([[app.bundleURL path] UTF8String]);
}

char *typlsFrontmostAppID() {
    NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
    if (app == nil) {
        return NULL;
    }
    return strdup([[NSString stringWithFormat:@"%d", app.processIdentifier] UTF8String]);
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	darwinMu   sync.Mutex
	darwinSink func(Event)
)

//export typlsKeyEvent
func typlsKeyEvent(vk, keycode C.uint16_t, isKeyDown C.uint8_t) {
	if isKeyDown == 0 {
		return
	}
	darwinMu.Lock()
	sink := darwinSink
	darwinMu.Unlock()
	if sink == nil {
		return
	}
	sink(macKeycodeToEvent(uint16(keycode)))
}

// macOS virtual keycodes for the identity keys the capture machine tracks.
const (
	macBackspace = 51
	macReturn    = 36
	macKpEnter   = 76
	macEscape    = 53
	macRightArrow = 124
)

func macKeycodeToEvent(code uint16) Event {
	switch code {
	case macBackspace:
		return Event{Type: KeyPress(KeyBackspace)}
	case macReturn, macKpEnter:
		return Event{Type: KeyPress(KeyReturn), Name: "\n"}
	case macEscape:
		return Event{Type: KeyPress(KeyEscape)}
	case macRightArrow:
		return Event{Type: KeyPress(KeyRightArrow)}
	}
	if ch, ok := usLayout(code, false); ok {
		return Event{Type: Other, Name: string(ch)}
	}
	return Event{Type: Other}
}

// DarwinKeyHook installs a listen-only CGEventTap, requiring Accessibility
// permission for the host process.
type DarwinKeyHook struct{}

// NewKeyHook returns the macOS KeyHook implementation.
func NewKeyHook() KeyHook { return &DarwinKeyHook{} }

// Listen installs the event tap and runs the CFRunLoop on the calling
// goroutine, which must be locked to its OS thread — CGEventTapCreate
// requires a run loop to be pumped on the same thread that created it.
func (h *DarwinKeyHook) Listen(ctx context.Context, sink func(Event)) error {
	darwinMu.Lock()
	darwinSink = sink
	darwinMu.Unlock()

	if rc := C.typlsStartEventTap(); rc != 0 {
		return errors.New("platform: CGEventTapCreate failed (check Accessibility permission)")
	}
	defer C.typlsStopEventTap()

	<-ctx.Done()
	return nil
}

// DarwinTyper synthesizes input via CGEventPost.
type DarwinTyper struct{}

// NewTyper returns the macOS Typer implementation.
func NewTyper() *DarwinTyper { return &DarwinTyper{} }

func (t *DarwinTyper) Key(k Key, mode ClickMode) error {
	code, ok := keyToMacCode(k)
	if !ok {
		return fmt.Errorf("platform: unsupported key %d", k)
	}
	if mode == Press || mode == Click {
		C.typlsSendKey(C.CGKeyCode(code), C.int(1))
	}
	if mode == Release || mode == Click {
		C.typlsSendKey(C.CGKeyCode(code), C.int(0))
	}
	return nil
}

func keyToMacCode(k Key) (uint16, bool) {
	switch k {
	case KeyBackspace:
		return macBackspace, true
	case KeyReturn:
		return macReturn, true
	case KeyRightArrow:
		return macRightArrow, true
	case KeyEscape:
		return macEscape, true
	}
	return 0, false
}

// Text inserts s via CGEventKeyboardSetUnicodeString, which bypasses
// layout entirely and accepts arbitrary Unicode.
func (t *DarwinTyper) Text(s string) error {
	units := utf16Units(s)
	if len(units) == 0 {
		return nil
	}
	C.typlsSendUnicode((*C.UniChar)(unsafe.Pointer(&units[0])), C.int(len(units)))
	return nil
}

func utf16Units(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, uint16(r))
			continue
		}
		r -= 0x10000
		out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return out
}

// DarwinWindowProbe reads the frontmost application via NSWorkspace.
type DarwinWindowProbe struct{}

// NewWindowProbe returns the macOS WindowProbe implementation.
func NewWindowProbe() *DarwinWindowProbe { return &DarwinWindowProbe{} }

func (p *DarwinWindowProbe) Current() (WindowInfo, error) {
	pathC := C.typlsFrontmostAppPath()
	if pathC == nil {
		return WindowInfo{}, errors.New("platform: no frontmost application")
	}
	defer C.free(unsafe.Pointer(pathC))

	idC := C.typlsFrontmostAppID()
	windowID := ""
	if idC != nil {
		windowID = C.GoString(idC)
		C.free(unsafe.Pointer(idC))
	}

	return WindowInfo{WindowID: windowID, ProcessPath: C.GoString(pathC)}, nil
}
