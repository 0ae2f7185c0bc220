package app

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per session with the session JSON as payload.
// SaveSessions replaces the whole table inside a transaction, preserving the
// whole-snapshot persistence contract.
type SQLiteStore struct {
	Root   string
	dbPath string

	mu   sync.Mutex
	db   *sql.DB
	once sync.Once
	err  error
}

func NewSQLiteStore(root string) (*SQLiteStore, error) {
	if strings.TrimSpace(root) == "" {
		root = DefaultStorageRoot()
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	st := &SQLiteStore{
		Root:   root,
		dbPath: filepath.Join(root, "agent-ui.db"),
	}
	// Initialize eagerly so callers fail fast.
	if err := st.init(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) init() error {
	s.once.Do(func() {
		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			s.err = err
			return
		}
		// Keep sqlite responsive under contention.
		for _, pragma := range []string{
			`PRAGMA journal_mode=WAL;`,
			`PRAGMA busy_timeout=5000;`,
			`PRAGMA synchronous=NORMAL;`,
		} {
			if _, err := db.Exec(pragma); err != nil {
				s.err = err
				return
			}
		}
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			updated_at_ns INTEGER NOT NULL,
			payload       TEXT NOT NULL
		)`); err != nil {
			s.err = err
			return
		}
		s.db = db
	})
	return s.err
}

func (s *SQLiteStore) LoadSessions() (map[string]ChatSession, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT payload FROM sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := map[string]ChatSession{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sess ChatSession
		if err := json.Unmarshal([]byte(payload), &sess); err != nil {
			return nil, err
		}
		sessions[sess.ID] = sess
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) SaveSessions(sessions map[string]ChatSession) error {
	if err := s.init(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return err
	}
	for id, sess := range sessions {
		payload, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO sessions(id, updated_at_ns, payload) VALUES(?, ?, ?)`,
			id, sess.UpdatedAt.UnixNano(), string(payload),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
