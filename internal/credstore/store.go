// Package credstore manages per-session credential directories under the
// application workdir. Each session owns one directory holding the whatsmeow
// sqlite store plus a meta.json sidecar written after archival.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// CredFile is the credential bundle inside a session directory.
	CredFile = "creds.db"
	// MetaFile is the sidecar describing an archived session.
	MetaFile = "meta.json"

	// minSnapshotSize guards against reading a bundle that has been created
	// but not yet populated with account keys.
	minSnapshotSize = 100
)

var (
	ErrNotFound   = errors.New("credstore: no credential bundle")
	ErrIncomplete = errors.New("credstore: credential bundle incomplete")
)

// safeID strips everything but alphanumerics from a session id so the
// resulting path can never leave the store root.
func safeID(sessionID string) string {
	var sb strings.Builder
	for _, r := range sessionID {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Meta describes an archived session.
type Meta struct {
	SessionID string    `json:"session_id"`
	Locator   string    `json:"locator"`
	CreatedAt time.Time `json:"created_at"`
}

// Store locates session directories under <workdir>/sessions.
type Store struct {
	root string
}

func New(workdir string) *Store {
	return &Store{root: filepath.Join(workdir, "sessions")}
}

// Dir returns the directory path for sessionID without creating it. The id
// is reduced to its alphanumeric characters before joining.
func (s *Store) Dir(sessionID string) string {
	return filepath.Join(s.root, safeID(sessionID))
}

// EnsureDir creates the session directory and returns its path. Ids with no
// alphanumeric characters are rejected.
func (s *Store) EnsureDir(sessionID string) (string, error) {
	if safeID(sessionID) == "" {
		return "", fmt.Errorf("credstore: unusable session id %q", sessionID)
	}
	dir := s.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// Exists reports whether the session directory is present on disk.
func (s *Store) Exists(sessionID string) bool {
	if safeID(sessionID) == "" {
		return false
	}
	fi, err := os.Stat(s.Dir(sessionID))
	return err == nil && fi.IsDir()
}

// Snapshot reads the credential bundle bytes for sessionID. It returns
// ErrNotFound when no bundle exists yet and ErrIncomplete when the bundle is
// below the minimum usable size. Other disk errors propagate.
func (s *Store) Snapshot(sessionID string) ([]byte, error) {
	if safeID(sessionID) == "" {
		return nil, ErrNotFound
	}
	path := filepath.Join(s.Dir(sessionID), CredFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read credential bundle: %w", err)
	}
	if len(data) < minSnapshotSize {
		return nil, ErrIncomplete
	}
	return data, nil
}

// Destroy removes the session directory recursively. Removing a directory
// that does not exist is not an error, so Destroy is idempotent. Ids with no
// alphanumeric characters never touch the disk.
func (s *Store) Destroy(sessionID string) error {
	if safeID(sessionID) == "" {
		return nil
	}
	return os.RemoveAll(s.Dir(sessionID))
}

// WriteMeta writes the meta.json sidecar into the session directory.
func (s *Store) WriteMeta(sessionID string, m Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir(sessionID), MetaFile), data, 0o600)
}

// ReadMeta reads the meta.json sidecar. Returns ErrNotFound when absent.
func (s *Store) ReadMeta(sessionID string) (Meta, error) {
	var m Meta
	data, err := os.ReadFile(filepath.Join(s.Dir(sessionID), MetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, ErrNotFound
		}
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", MetaFile, err)
	}
	return m, nil
}

// List returns all session directories with their meta (zero Meta when the
// sidecar has not been written yet).
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Meta, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := s.ReadMeta(e.Name())
		if err != nil {
			m = Meta{SessionID: e.Name()}
		}
		if m.SessionID == "" {
			m.SessionID = e.Name()
		}
		out = append(out, m)
	}
	return out, nil
}

// StaleSince returns session ids whose directory was last modified before the
// cutoff and which carry no meta sidecar. These are abandoned pairing
// attempts left behind by a crash.
func (s *Store) StaleSince(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var stale []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := s.ReadMeta(e.Name()); err == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, e.Name())
		}
	}
	return stale, nil
}
