package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Timestamp: base, Abbr: "hi", ExpansionID: "exp-1", ProcessPath: "/usr/bin/code"},
		{Timestamp: base.Add(time.Second), Abbr: "sig", ExpansionID: "exp-2", ProcessPath: "/usr/bin/bash"},
		{Timestamp: base.Add(2 * time.Second), Abbr: "addr", ExpansionID: "exp-3", ProcessPath: ""},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(e))
	}

	got, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "addr", got[0].Abbr)
	require.Equal(t, "sig", got[1].Abbr)
}

func TestRecentDefaultsLimit(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Record(Entry{Timestamp: time.Now(), Abbr: "x", ExpansionID: "1"}))

	got, err := store.Recent(0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRecentOnEmptyStore(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Recent(10)
	require.NoError(t, err)
	require.Empty(t, got)
}
