package app

import (
	"os"
	"path/filepath"
	"strings"
)

// SessionStore persists the whole session registry as a snapshot. Writes
// always replace the complete mapping, never a diff, so a crash loses at
// most the newest mutation and can never corrupt older sessions.
type SessionStore interface {
	// LoadSessions returns the stored mapping. A missing store yields an
	// empty (non-nil) map and no error.
	LoadSessions() (map[string]ChatSession, error)
	SaveSessions(sessions map[string]ChatSession) error
}

// DefaultStorageRoot resolves the on-disk home for session data.
func DefaultStorageRoot() string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, "agent-ui", "storage")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "agent-ui", "storage")
	}
	return filepath.Join(os.TempDir(), "agent-ui", "storage")
}

// OpenStore builds the configured store backend.
func OpenStore(backend, root string) (SessionStore, error) {
	switch backend {
	case "sqlite":
		return NewSQLiteStore(root)
	default:
		return NewFileStore(root), nil
	}
}
