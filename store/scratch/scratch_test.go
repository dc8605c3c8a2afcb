package scratch_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store/scratch"
)

func newStore(t *testing.T) *scratch.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scratch.db")
	s, err := scratch.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newStore(t)
	sessionID := id.New()
	raw := []byte("date,description,amount\n2026-01-01,Coffee,-4.50\n")

	require.NoError(t, s.Put(sessionID, raw))

	got, ok, err := s.Get(sessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, raw, got)
}

func TestGetMissingSessionIsNotOK(t *testing.T) {
	s := newStore(t)
	_, ok, err := s.Get(id.New())
	require.NoError(t, err)
	assert.False(t, ok, "a session never Put, or already Deleted, must report not-ok so callers treat it as expired")
}

func TestDeleteClearsEntry(t *testing.T) {
	s := newStore(t)
	sessionID := id.New()
	require.NoError(t, s.Put(sessionID, []byte("data")))
	require.NoError(t, s.Delete(sessionID))

	_, ok, err := s.Get(sessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}
