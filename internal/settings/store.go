package settings

import "sync/atomic"

// Store publishes a Settings snapshot for many concurrent readers with a
// single writer, the copy-on-write design spec.md §9 calls out as
// equivalent to a reader-writer lock: every keyboard event takes a
// non-blocking Current() read, and the settings UI/loader calls Replace
// to swap in a whole new value atomically.
type Store struct {
	val atomic.Pointer[Settings]
}

// NewStore creates a Store seeded with initial.
func NewStore(initial Settings) *Store {
	st := &Store{}
	st.Replace(initial)
	return st
}

// Current returns the most recently published snapshot. Safe to call from
// any goroutine, including the keyboard-hook thread, without blocking.
func (st *Store) Current() Settings {
	return *st.val.Load()
}

// Replace atomically publishes s as the new current snapshot. The old
// snapshot remains valid for any reader already holding it — no reader
// ever observes a partially-updated Settings value.
func (st *Store) Replace(s Settings) {
	st.val.Store(&s)
}
