// Package windowwatch polls a platform.WindowProbe and publishes the
// currently focused application as a single shared snapshot (spec.md
// §4.2, §5).
package windowwatch

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pabueco/typls/internal/platform"
)

// Snapshot describes the window that was focused the last time the
// watcher polled.
type Snapshot struct {
	WindowID    string
	ProcessPath string
}

// pollInterval is the base poll period; spec.md §4.2 calls for roughly
// 500ms with jitter so many daemon instances on one machine don't all
// probe in lockstep.
const pollInterval = 500 * time.Millisecond

// Watcher owns the single mutable ActiveWindowSnapshot cell spec.md §5
// describes, guarded here by a mutex rather than an atomic pointer since
// the struct is small and contention is negligible.
type Watcher struct {
	probe platform.WindowProbe

	mu       sync.RWMutex
	snapshot Snapshot

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Watcher over probe. Call Start to begin polling.
func New(probe platform.WindowProbe) *Watcher {
	return &Watcher{
		probe: probe,
		done:  make(chan struct{}),
	}
}

// Start begins the polling loop in its own goroutine.
func (w *Watcher) Start() {
	w.pollOnce()
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the poll loop to exit and waits for it to finish.
func (w *Watcher) Stop() {
	close(w.done)
	w.wg.Wait()
}

// Current returns the most recently observed window snapshot. Safe to call
// from the expansion engine concurrently with the poll loop.
func (w *Watcher) Current() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		d := jitter(pollInterval)
		timer := time.NewTimer(d)
		select {
		case <-w.done:
			timer.Stop()
			return
		case <-timer.C:
			w.pollOnce()
		}
	}
}

func (w *Watcher) pollOnce() {
	info, err := w.probe.Current()
	if err != nil {
		// Runtime adapter failure: logged by the caller via a wrapping
		// probe if desired; spec.md §7 kind 3 treats this as discardable.
		return
	}

	w.mu.Lock()
	w.snapshot = Snapshot{WindowID: info.WindowID, ProcessPath: info.ProcessPath}
	w.mu.Unlock()
}

// jitter returns base plus or minus up to 10%, so concurrently started
// watchers don't poll in lockstep.
func jitter(base time.Duration) time.Duration {
	spread := base / 10
	if spread <= 0 {
		return base
	}
	offset := time.Duration(rand.Int63n(int64(2*spread))) - spread
	return base + offset
}
