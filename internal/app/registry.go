package app

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionObserver is notified after every registry mutation, outside the
// registry lock. The UI uses it to re-render the affected session.
type SessionObserver func(sessionID string)

// SessionRegistry is the single source of truth for all chat sessions.
// Every mutation goes through Upsert-style read-modify-write under one lock
// and triggers a full persistence snapshot, so concurrent completions
// (streaming deltas, title generation) can never lose each other's updates.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*ChatSession
	store    SessionStore
	logger   *Logger
	observer SessionObserver
}

// NewSessionRegistry loads prior sessions from the store. A load failure is
// treated as "no prior data": the registry starts fresh with one empty
// session and the error is only logged, never surfaced.
func NewSessionRegistry(store SessionStore, logger *Logger) *SessionRegistry {
	r := &SessionRegistry{
		sessions: map[string]*ChatSession{},
		store:    store,
		logger:   logger,
	}
	var loaded map[string]ChatSession
	if store != nil {
		var err error
		loaded, err = store.LoadSessions()
		if err != nil {
			logger.Warn("session load failed, starting fresh", map[string]interface{}{"error": err.Error()})
			loaded = nil
		}
	}
	for id, sess := range loaded {
		s := sess.Clone()
		r.sessions[id] = &s
	}
	if len(r.sessions) == 0 {
		r.createLocked("New chat")
	}
	return r
}

// SetObserver installs the single mutation observer. Must be called before
// the registry is shared across goroutines.
func (r *SessionRegistry) SetObserver(fn SessionObserver) {
	r.observer = fn
}

// Get returns a deep copy of the session, safe to read without the lock.
func (r *SessionRegistry) Get(id string) (ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return ChatSession{}, false
	}
	return sess.Clone(), true
}

// Upsert applies fn to the session with the given id and persists the
// result. A missing id is a logged no-op: it never creates implicitly,
// which is what makes stale async completions safe after deletion.
func (r *SessionRegistry) Upsert(id string, fn func(*ChatSession)) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("upsert on missing session", map[string]interface{}{"session": id})
		return
	}
	fn(sess)
	r.persistLocked()
	r.mu.Unlock()
	r.notify(id)
}

// Create allocates a new empty session and returns its id.
func (r *SessionRegistry) Create(title string) string {
	r.mu.Lock()
	id := r.createLocked(title)
	r.mu.Unlock()
	r.notify(id)
	return id
}

func (r *SessionRegistry) createLocked(title string) string {
	now := time.Now().UTC()
	sess := &ChatSession{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.sessions[sess.ID] = sess
	r.persistLocked()
	return sess.ID
}

// Delete removes the session. Reports whether it existed. Picking a
// replacement active session is the caller's job.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.persistLocked()
	}
	r.mu.Unlock()
	if ok {
		r.notify(id)
	}
	return ok
}

// DeleteAll clears the registry.
func (r *SessionRegistry) DeleteAll() {
	r.mu.Lock()
	r.sessions = map[string]*ChatSession{}
	r.persistLocked()
	r.mu.Unlock()
	r.notify("")
}

// List returns deep copies ordered by UpdatedAt descending.
func (r *SessionRegistry) List() []ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChatSession, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len reports the number of stored sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) persistLocked() {
	if r.store == nil {
		return
	}
	snapshot := make(map[string]ChatSession, len(r.sessions))
	for id, sess := range r.sessions {
		snapshot[id] = sess.Clone()
	}
	if err := r.store.SaveSessions(snapshot); err != nil {
		r.logger.Error("session persistence failed", map[string]interface{}{"error": err.Error()})
	}
}

func (r *SessionRegistry) notify(id string) {
	if r.observer != nil {
		r.observer(id)
	}
}
