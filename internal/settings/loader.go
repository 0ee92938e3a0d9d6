package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"
)

// Loader reads a settings file from disk, validates it, and watches it for
// changes, pushing every successfully-parsed Settings value to a Store
// (spec.md §6.3, §9).
type Loader struct {
	path string

	mu       sync.Mutex
	lastSum  [blake2b.Size256]byte
	haveSum  bool
	onChange []func(Settings)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
}

// NewLoader creates a Loader for the settings file at path.
func NewLoader(path string) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:   path,
		ctx:    ctx,
		cancel: cancel,
		errCh:  make(chan error, 1),
	}
}

// OnChange registers a callback invoked with every new Settings value that
// passes validation, including the very first Load.
func (l *Loader) OnChange(cb func(Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

// Errors returns a channel of reload failures, surfaced but not fatal
// (spec.md §7 kind 1: "a malformed settings file falls back to the last
// good snapshot, or factory defaults on first run").
func (l *Loader) Errors() <-chan error {
	return l.errCh
}

// Load reads the settings file once, validates and parses it, and notifies
// every registered callback. On a missing file it returns Default() without
// error. On a malformed file it returns the parse/validation error; callers
// on first run should fall back to Default() themselves.
func (l *Loader) Load() (Settings, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			def := Default()
			l.publish(data, def)
			return def, nil
		}
		return Settings{}, fmt.Errorf("settings: read %s: %w", l.path, err)
	}

	s, err := parseAndValidate(data)
	if err != nil {
		return Settings{}, err
	}

	l.publish(data, s)
	return s, nil
}

// Watch starts an fsnotify watch on the settings file's directory and
// reloads on every write/create event, debounced and deduplicated by
// content hash so an editor's atomic-rename-save doesn't trigger two
// reloads for identical content.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: create watcher: %w", err)
	}
	l.watcher = watcher

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}

	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	const debounceDelay = 150 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-l.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(l.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, l.reload)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.pushErr(fmt.Errorf("settings: watch error: %w", err))
		}
	}
}

func (l *Loader) reload() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		l.pushErr(fmt.Errorf("settings: reload read: %w", err))
		return
	}

	if l.unchanged(data) {
		return
	}

	s, err := parseAndValidate(data)
	if err != nil {
		l.pushErr(fmt.Errorf("settings: reload: %w", err))
		return
	}

	l.publish(data, s)
}

// unchanged reports whether data hashes the same as the last published
// content, without taking the publish lock's write path.
func (l *Loader) unchanged(data []byte) bool {
	sum := blake2b.Sum256(data)
	l.mu.Lock()
	defer l.mu.Unlock()
	same := l.haveSum && sum == l.lastSum
	return same
}

func (l *Loader) publish(data []byte, s Settings) {
	sum := blake2b.Sum256(data)

	l.mu.Lock()
	l.lastSum = sum
	l.haveSum = true
	callbacks := append([]func(Settings){}, l.onChange...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(s)
	}
}

func (l *Loader) pushErr(err error) {
	select {
	case l.errCh <- err:
	default:
	}
}

// Close stops the watcher and releases resources.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func parseAndValidate(data []byte) (Settings, error) {
	if err := ValidateDocument(data); err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	return s, nil
}
