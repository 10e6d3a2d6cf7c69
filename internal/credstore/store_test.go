package credstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotGates(t *testing.T) {
	s := New(t.TempDir())
	dir, err := s.EnsureDir("sess1")
	require.NoError(t, err)

	_, err = s.Snapshot("sess1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, CredFile), []byte("tiny"), 0o600))
	_, err = s.Snapshot("sess1")
	assert.ErrorIs(t, err, ErrIncomplete)

	payload := bytes.Repeat([]byte("k"), 150)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CredFile), payload, 0o600))
	data, err := s.Snapshot("sess1")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDestroyIdempotent(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.EnsureDir("sess1")
	require.NoError(t, err)

	require.NoError(t, s.Destroy("sess1"))
	assert.False(t, s.Exists("sess1"))
	// second destroy of a missing directory is still a success
	require.NoError(t, s.Destroy("sess1"))
}

func TestTraversalIDStaysUnderRoot(t *testing.T) {
	base := t.TempDir()
	victim := filepath.Join(base, "victim")
	require.NoError(t, os.MkdirAll(victim, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(victim, "keep.txt"), []byte("x"), 0o600))

	s := New(filepath.Join(base, "work"))

	// the traversal id is reduced to "victim" inside the sessions root
	dir, err := s.EnsureDir("../../victim")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dir, filepath.Join(base, "work", "sessions")))

	require.NoError(t, s.Destroy("../../victim"))
	_, err = os.Stat(filepath.Join(victim, "keep.txt"))
	assert.NoError(t, err)
}

func TestUnusableIDRejected(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.EnsureDir("../..")
	assert.Error(t, err)
	assert.False(t, s.Exists("../.."))
	_, err = s.Snapshot("../..")
	assert.ErrorIs(t, err, ErrNotFound)
	// destroying an unusable id must not touch the root itself
	require.NoError(t, s.Destroy("../.."))
	require.NoError(t, s.Destroy(""))
}

func TestMetaRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.EnsureDir("sess1")
	require.NoError(t, err)

	_, err = s.ReadMeta("sess1")
	assert.ErrorIs(t, err, ErrNotFound)

	m := Meta{SessionID: "sess1", Locator: "SESS~abc#def", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.WriteMeta("sess1", m))

	got, err := s.ReadMeta("sess1")
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestListAndStale(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.EnsureDir("done")
	require.NoError(t, err)
	require.NoError(t, s.WriteMeta("done", Meta{SessionID: "done", Locator: "SESS~x#y", CreatedAt: time.Now()}))
	_, err = s.EnsureDir("abandoned")
	require.NoError(t, err)

	metas, err := s.List()
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	// only the directory without meta counts as stale
	stale, err := s.StaleSince(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"abandoned"}, stale)

	stale, err = s.StaleSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)
}
