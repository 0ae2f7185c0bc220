package app

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"
)

const seedTitleRunes = 32

// Navigator receives route-change side effects from the controller. The UI
// decides what "navigating" means.
type Navigator interface {
	GoToSession(id string)
	GoToSessionList()
}

// NoopNavigator ignores navigation. Headless commands use it.
type NoopNavigator struct{}

func (NoopNavigator) GoToSession(string) {}
func (NoopNavigator) GoToSessionList()  {}

// Controller orchestrates the request lifecycle: validate → locate or
// create the session → append the pending user message → drive the merge
// engine → finalize or roll back. It also owns the active-session pointer
// and the per-session loading/streaming flags the UI reads.
type Controller struct {
	registry *SessionRegistry
	provider Provider
	engine   *StreamMergeEngine
	nav      Navigator
	logger   *Logger
	model    string
	lang     string

	mu     sync.Mutex
	active string
	flags  map[string]*requestFlags
}

type requestFlags struct {
	loading   bool
	streaming bool
}

func NewController(registry *SessionRegistry, provider Provider, nav Navigator, logger *Logger, model, lang string) *Controller {
	if nav == nil {
		nav = NoopNavigator{}
	}
	if lang == "" {
		lang = "en"
	}
	return &Controller{
		registry: registry,
		provider: provider,
		engine:   NewStreamMergeEngine(registry, provider, logger, lang),
		nav:      nav,
		logger:   logger,
		model:    model,
		lang:     lang,
		flags:    map[string]*requestFlags{},
	}
}

// ActiveSessionID returns the session currently shown in the UI, or ""
// when none is active.
func (c *Controller) ActiveSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActiveSession switches the UI to the given session.
func (c *Controller) SetActiveSession(id string) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
}

// Busy reports the loading/streaming flags for a session.
func (c *Controller) Busy(sessionID string) (loading, streaming bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flags[sessionID]
	if !ok {
		return false, false
	}
	return f.loading, f.streaming
}

// Send validates the prompt, locates or creates the active session, appends
// the user message and drives a generation stream into a new assistant
// message. It blocks until the stream completes or fails; callers run it on
// their own goroutine.
func (c *Controller) Send(ctx context.Context, promptText string, attachments []Attachment) error {
	if strings.TrimSpace(promptText) == "" && len(attachments) == 0 {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.active != "" {
		if f, ok := c.flags[c.active]; ok && f.loading {
			c.mu.Unlock()
			return ErrRequestInFlight
		}
	}
	if c.model == "" {
		c.mu.Unlock()
		return ErrNoModelSelected
	}

	sessionID := c.active
	fresh := false
	if sessionID == "" {
		sessionID = c.registry.Create(seedTitle(promptText))
		c.active = sessionID
		fresh = true
	} else if sess, ok := c.registry.Get(sessionID); !ok {
		sessionID = c.registry.Create(seedTitle(promptText))
		c.active = sessionID
		fresh = true
	} else if len(sess.Messages) == 0 {
		fresh = true
	}
	c.beginLocked(sessionID)
	c.mu.Unlock()
	defer c.endRequest(sessionID)

	if fresh {
		c.nav.GoToSession(sessionID)
		seed := seedTitle(promptText)
		c.registry.Upsert(sessionID, func(s *ChatSession) { s.Title = seed })
		go c.generateTitle(sessionID, promptText)
	}

	sess, ok := c.registry.Get(sessionID)
	if !ok {
		return nil
	}
	history := collectHistory(sess.Messages)

	c.registry.AppendMessage(sessionID, NewMessage(RoleUser, promptText, attachments))

	return c.runGeneration(ctx, StreamTarget{SessionID: sessionID}, GenerateRequest{
		Model:       c.model,
		History:     history,
		Prompt:      promptText,
		Attachments: attachments,
	})
}

// Edit creates a new version on a prior user message and, when the next
// message is its paired assistant reply, a matching empty version on that
// reply; the generation then refills the reply in place against the
// truncated history. No-op while a request is in flight or when the message
// cannot be found.
func (c *Controller) Edit(ctx context.Context, messageID, newContent string) error {
	c.mu.Lock()
	sessionID := c.active
	if sessionID == "" {
		c.mu.Unlock()
		return nil
	}
	if f, ok := c.flags[sessionID]; ok && f.loading {
		c.mu.Unlock()
		return nil
	}

	sess, ok := c.registry.Get(sessionID)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	pos := messageIndex(sess.Messages, messageID)
	if pos < 0 || sess.Messages[pos].Role != RoleUser {
		c.mu.Unlock()
		return nil
	}
	c.beginLocked(sessionID)
	c.mu.Unlock()
	defer c.endRequest(sessionID)

	c.registry.CreateVersion(sessionID, messageID, MessageVersion{Content: newContent})

	assistantID := ""
	if pos+1 < len(sess.Messages) && sess.Messages[pos+1].Role == RoleAssistant {
		assistantID = sess.Messages[pos+1].ID
		c.registry.CreateVersion(sessionID, assistantID, emptyVersion())
	}

	return c.runGeneration(ctx, StreamTarget{SessionID: sessionID, MessageID: assistantID}, GenerateRequest{
		Model:   c.model,
		History: collectHistory(sess.Messages[:pos]),
		Prompt:  newContent,
	})
}

// Regenerate parks a new empty version on the target assistant message and
// re-runs generation from the nearest preceding user message. No-op when no
// preceding user message exists.
func (c *Controller) Regenerate(ctx context.Context, messageID string) error {
	c.mu.Lock()
	sessionID := c.active
	if sessionID == "" {
		c.mu.Unlock()
		return nil
	}
	if f, ok := c.flags[sessionID]; ok && f.loading {
		c.mu.Unlock()
		return nil
	}

	sess, ok := c.registry.Get(sessionID)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	pos := messageIndex(sess.Messages, messageID)
	if pos < 0 || sess.Messages[pos].Role != RoleAssistant {
		c.mu.Unlock()
		return nil
	}
	userPos := -1
	for i := pos - 1; i >= 0; i-- {
		if sess.Messages[i].Role == RoleUser {
			userPos = i
			break
		}
	}
	if userPos < 0 {
		c.mu.Unlock()
		return nil
	}
	c.beginLocked(sessionID)
	c.mu.Unlock()
	defer c.endRequest(sessionID)

	c.registry.CreateVersion(sessionID, messageID, emptyVersion())

	user := sess.Messages[userPos]
	return c.runGeneration(ctx, StreamTarget{SessionID: sessionID, MessageID: messageID}, GenerateRequest{
		Model:       c.model,
		History:     collectHistory(sess.Messages[:userPos]),
		Prompt:      user.Content,
		Attachments: user.Attachments,
	})
}

// ChangeVersion moves a message's active version pointer. Pure state
// change, no network activity.
func (c *Controller) ChangeVersion(messageID string, index int) {
	c.mu.Lock()
	sessionID := c.active
	c.mu.Unlock()
	if sessionID == "" {
		return
	}
	c.registry.SetVersionPointer(sessionID, messageID, index)
}

// DeleteSession removes the session immediately. When it was active, the
// most recently updated remaining session takes its place; with none left
// the controller transitions to the no-active-session state and a new
// session will be created on the next Send.
func (c *Controller) DeleteSession(id string) {
	c.registry.Delete(id)

	c.mu.Lock()
	wasActive := c.active == id
	if wasActive {
		c.active = ""
	}
	c.mu.Unlock()
	if !wasActive {
		return
	}

	remaining := c.registry.List()
	if len(remaining) == 0 {
		c.nav.GoToSessionList()
		return
	}
	next := remaining[0].ID
	c.mu.Lock()
	c.active = next
	c.mu.Unlock()
	c.nav.GoToSession(next)
}

// ClearAll removes every session.
func (c *Controller) ClearAll() {
	c.registry.DeleteAll()
	c.mu.Lock()
	c.active = ""
	c.mu.Unlock()
	c.nav.GoToSessionList()
}

func (c *Controller) runGeneration(ctx context.Context, target StreamTarget, req GenerateRequest) error {
	stream, err := c.provider.Stream(ctx, req)
	if err != nil {
		// The stream never started; regenerate/edit targets still carry
		// the empty version parked for it.
		if target.MessageID != "" {
			c.registry.DropTrailingVersion(target.SessionID, target.MessageID)
		}
		return classifyStreamError(err)
	}

	_, err = c.engine.Run(ctx, target, req, stream, func() {
		c.setStreaming(target.SessionID, true)
	})
	return err
}

// generateTitle asks the provider for a better title. Best effort: failure
// leaves the truncated seed title in place, and a deleted session makes the
// upsert a no-op.
func (c *Controller) generateTitle(sessionID, prompt string) {
	title, err := c.provider.GenerateTitle(context.Background(), c.model, prompt)
	if err != nil || strings.TrimSpace(title) == "" {
		if err != nil {
			c.logger.Warn("title generation failed", map[string]interface{}{
				"session": sessionID,
				"error":   err.Error(),
			})
		}
		return
	}
	c.registry.Upsert(sessionID, func(s *ChatSession) {
		s.Title = strings.TrimSpace(title)
	})
}

func (c *Controller) beginLocked(sessionID string) {
	f, ok := c.flags[sessionID]
	if !ok {
		f = &requestFlags{}
		c.flags[sessionID] = f
	}
	f.loading = true
	f.streaming = false
}

func (c *Controller) endRequest(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.flags[sessionID]; ok {
		f.loading = false
		f.streaming = false
	}
}

func (c *Controller) setStreaming(sessionID string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.flags[sessionID]; ok {
		f.streaming = v
	}
}

func seedTitle(prompt string) string {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return "New chat"
	}
	if line := strings.SplitN(p, "\n", 2)[0]; line != "" {
		p = line
	}
	if utf8.RuneCountInString(p) <= seedTitleRunes {
		return p
	}
	runes := []rune(p)
	return strings.TrimSpace(string(runes[:seedTitleRunes])) + "…"
}

func messageIndex(messages []Message, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}
