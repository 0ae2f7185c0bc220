package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

type navRecorder struct {
	mu     sync.Mutex
	events []string
}

func (n *navRecorder) GoToSession(id string) {
	n.mu.Lock()
	n.events = append(n.events, "session:"+id)
	n.mu.Unlock()
}

func (n *navRecorder) GoToSessionList() {
	n.mu.Lock()
	n.events = append(n.events, "list")
	n.mu.Unlock()
}

func (n *navRecorder) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return ""
	}
	return n.events[len(n.events)-1]
}

func newTestController(t *testing.T, mock *MockProvider) (*Controller, *SessionRegistry, string, *navRecorder) {
	t.Helper()
	r, sid := newTestRegistry(t)
	nav := &navRecorder{}
	c := NewController(r, mock, nav, NewLogger(io.Discard), "test-model", "en")
	c.SetActiveSession(sid)
	return c, r, sid, nav
}

func TestSendRejectsEmptyPrompt(t *testing.T) {
	mock := &MockProvider{}
	c, _, _, _ := newTestController(t, mock)

	if err := c.Send(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if mock.StreamCalls != 0 {
		t.Fatalf("empty prompt reached the provider: %d calls", mock.StreamCalls)
	}
}

func TestSendAcceptsAttachmentsOnly(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "got the file"}}}
	c, r, sid, _ := newTestController(t, mock)

	atts := []Attachment{{Name: "notes.txt", Content: "content"}}
	if err := c.Send(context.Background(), "", atts); err != nil {
		t.Fatalf("attachment-only send failed: %v", err)
	}

	sess := mustGet(t, r, sid)
	if len(sess.Messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(sess.Messages))
	}
	if len(sess.Messages[0].Attachments) != 1 {
		t.Fatalf("attachments lost: %+v", sess.Messages[0])
	}
	if len(mock.LastRequest.Attachments) != 1 {
		t.Fatalf("attachments not forwarded to the provider")
	}
}

func TestSendWithoutModel(t *testing.T) {
	mock := &MockProvider{}
	r, sid := newTestRegistry(t)
	c := NewController(r, mock, nil, NewLogger(io.Discard), "", "en")
	c.SetActiveSession(sid)

	err := c.Send(context.Background(), "hello", nil)
	if !errors.Is(err, ErrNoModelSelected) {
		t.Fatalf("expected ErrNoModelSelected, got %v", err)
	}

	// Detected before any mutation: no message appended, no flags raised.
	if n := len(mustGet(t, r, sid).Messages); n != 0 {
		t.Fatalf("timeline mutated despite missing model: %d messages", n)
	}
	if loading, streaming := c.Busy(sid); loading || streaming {
		t.Fatalf("flags raised: loading=%v streaming=%v", loading, streaming)
	}
	if mock.StreamCalls != 0 {
		t.Fatalf("provider contacted: %d calls", mock.StreamCalls)
	}
}

func TestSendIntoFreshSession(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "Hi there"}}}
	c, r, sid, nav := newTestController(t, mock)

	if err := c.Send(context.Background(), "What is Go?", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	sess := mustGet(t, r, sid)
	if sess.Title != "What is Go?" {
		t.Fatalf("seed title not applied: %q", sess.Title)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected user+assistant, got %d messages", len(sess.Messages))
	}
	if sess.Messages[0].Role != RoleUser || sess.Messages[0].Content != "What is Go?" {
		t.Fatalf("unexpected user message: %+v", sess.Messages[0])
	}
	if sess.Messages[1].Role != RoleAssistant || sess.Messages[1].Content != "Hi there" {
		t.Fatalf("unexpected assistant message: %+v", sess.Messages[1])
	}
	if len(mock.LastRequest.History) != 0 {
		t.Fatalf("fresh send carried history: %+v", mock.LastRequest.History)
	}
	if nav.last() != "session:"+sid {
		t.Fatalf("navigation not recorded: %q", nav.last())
	}
	if loading, streaming := c.Busy(sid); loading || streaming {
		t.Fatalf("flags not cleared: loading=%v streaming=%v", loading, streaming)
	}
}

func TestSendCreatesSessionWhenNoneActive(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "ok"}}}
	r, _ := newTestRegistry(t)
	c := NewController(r, mock, nil, NewLogger(io.Discard), "test-model", "en")

	if err := c.Send(context.Background(), "first words", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	active := c.ActiveSessionID()
	if active == "" {
		t.Fatal("no active session after send")
	}
	sess := mustGet(t, r, active)
	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages in the new session, got %d", len(sess.Messages))
	}
}

func TestSendBuildsHistoryFromActiveVersions(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "first answer"}}}
	c, _, _, _ := newTestController(t, mock)

	if err := c.Send(context.Background(), "first question", nil); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	mock.Deltas = []Delta{TextDelta{Content: "second answer"}}
	if err := c.Send(context.Background(), "second question", nil); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	hist := mock.LastRequest.History
	if len(hist) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(hist))
	}
	if hist[0].Role != RoleUser || hist[0].Content != "first question" {
		t.Fatalf("unexpected first turn: %+v", hist[0])
	}
	if hist[1].Role != RoleAssistant || hist[1].Content != "first answer" {
		t.Fatalf("unexpected second turn: %+v", hist[1])
	}
}

func TestSendStreamStartFailureKeepsUserMessage(t *testing.T) {
	mock := &MockProvider{StartErr: errors.New("dial tcp: refused")}
	c, r, sid, _ := newTestController(t, mock)

	err := c.Send(context.Background(), "hello?", nil)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}

	sess := mustGet(t, r, sid)
	if len(sess.Messages) != 1 || sess.Messages[0].Role != RoleUser {
		t.Fatalf("expected only the user message to remain: %+v", sess.Messages)
	}
}

func TestSendSurfacesQuotaError(t *testing.T) {
	mock := &MockProvider{StreamErr: fmt.Errorf("%w: status 429", ErrQuotaExceeded), Deltas: []Delta{}}
	c, r, sid, _ := newTestController(t, mock)

	err := c.Send(context.Background(), "hello", nil)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota sentinel, got %v", err)
	}
	sess := mustGet(t, r, sid)
	if len(sess.Messages) != 1 {
		t.Fatalf("expected only the user message after quota failure: %d messages", len(sess.Messages))
	}
}

// gateProvider streams one delta and then blocks until released, letting
// tests observe the in-flight state.
type gateProvider struct {
	release chan struct{}
}

func (p *gateProvider) Stream(context.Context, GenerateRequest) (DeltaStream, error) {
	return &gateStream{release: p.release}, nil
}

func (p *gateProvider) GenerateTitle(context.Context, string, string) (string, error) {
	return "", errors.New("unavailable")
}

func (p *gateProvider) SuggestFollowups(context.Context, GenerateRequest, string) ([]string, error) {
	return nil, nil
}

type gateStream struct {
	release chan struct{}
	sent    bool
}

func (g *gateStream) Recv() (Delta, error) {
	if !g.sent {
		g.sent = true
		return TextDelta{Content: "partial"}, nil
	}
	<-g.release
	return nil, io.EOF
}

func (g *gateStream) Close() {}

func TestSendWhileRequestInFlight(t *testing.T) {
	release := make(chan struct{})
	r, sid := newTestRegistry(t)
	c := NewController(r, &gateProvider{release: release}, nil, NewLogger(io.Discard), "test-model", "en")
	c.SetActiveSession(sid)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "long question", nil) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, streaming := c.Busy(sid); streaming {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request never reached the streaming state")
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.Send(context.Background(), "impatient follow-up", nil); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if loading, streaming := c.Busy(sid); loading || streaming {
		t.Fatalf("flags not cleared: loading=%v streaming=%v", loading, streaming)
	}
}

func TestRegenerateCreatesNewVersion(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "Answer one"}}}
	c, r, sid, _ := newTestController(t, mock)

	if err := c.Send(context.Background(), "the question", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assistantID := mustGet(t, r, sid).Messages[1].ID

	mock.Deltas = []Delta{TextDelta{Content: "Answer two"}}
	if err := c.Regenerate(context.Background(), assistantID); err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}

	msg := mustGet(t, r, sid).Messages[1]
	if len(msg.Versions) != 2 || msg.CurrentVersionIndex != 1 {
		t.Fatalf("unexpected version state: %d/%d", len(msg.Versions), msg.CurrentVersionIndex)
	}
	if msg.Content != "Answer two" || msg.Versions[0].Content != "Answer one" {
		t.Fatalf("versions mixed up: %q / %q", msg.Content, msg.Versions[0].Content)
	}
	if mock.LastRequest.Prompt != "the question" {
		t.Fatalf("regenerate did not reuse the user prompt: %q", mock.LastRequest.Prompt)
	}

	// The older answer stays reachable.
	c.ChangeVersion(assistantID, 0)
	msg = mustGet(t, r, sid).Messages[1]
	if msg.Content != "Answer one" {
		t.Fatalf("prior version unreachable: %q", msg.Content)
	}
}

func TestRegenerateFailureRollsBack(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "Answer one"}}}
	c, r, sid, _ := newTestController(t, mock)

	if err := c.Send(context.Background(), "the question", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assistantID := mustGet(t, r, sid).Messages[1].ID

	mock.Deltas = []Delta{TextDelta{Content: "par"}}
	mock.StreamErr = errors.New("connection reset")
	err := c.Regenerate(context.Background(), assistantID)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}

	msg := mustGet(t, r, sid).Messages[1]
	if len(msg.Versions) != 1 || msg.CurrentVersionIndex != 0 || msg.Content != "Answer one" {
		t.Fatalf("failed regenerate not rolled back: %+v", msg)
	}
	if loading, streaming := c.Busy(sid); loading || streaming {
		t.Fatalf("flags not cleared after failure")
	}
}

func TestRegenerateWithoutPrecedingUserMessage(t *testing.T) {
	mock := &MockProvider{}
	c, r, sid, _ := newTestController(t, mock)

	orphan := NewMessage(RoleAssistant, "system notice", nil)
	r.AppendMessage(sid, orphan)

	if err := c.Regenerate(context.Background(), orphan.ID); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if mock.StreamCalls != 0 {
		t.Fatalf("provider contacted without a source prompt")
	}
	if n := len(mustGet(t, r, sid).Messages[0].Versions); n != 1 {
		t.Fatalf("version parked on a no-op regenerate: %d", n)
	}
}

func TestEditCreatesPairedVersions(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "old answer"}}}
	c, r, sid, _ := newTestController(t, mock)

	if err := c.Send(context.Background(), "original prompt", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	sess := mustGet(t, r, sid)
	userID := sess.Messages[0].ID
	assistantID := sess.Messages[1].ID

	mock.Deltas = []Delta{TextDelta{Content: "new answer"}}
	if err := c.Edit(context.Background(), userID, "edited prompt"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	sess = mustGet(t, r, sid)
	user, reply := sess.Messages[0], sess.Messages[1]
	if len(user.Versions) != 2 || user.CurrentVersionIndex != 1 || user.Content != "edited prompt" {
		t.Fatalf("user version state wrong: %+v", user)
	}
	if len(reply.Versions) != 2 || reply.CurrentVersionIndex != 1 || reply.Content != "new answer" {
		t.Fatalf("assistant version state wrong: %+v", reply)
	}
	if mock.LastRequest.Prompt != "edited prompt" || len(mock.LastRequest.History) != 0 {
		t.Fatalf("edit request wrong: %+v", mock.LastRequest)
	}

	// Switching the user back flips the paired assistant with it.
	c.ChangeVersion(userID, 0)
	sess = mustGet(t, r, sid)
	if sess.Messages[0].Content != "original prompt" || sess.Messages[1].Content != "old answer" {
		t.Fatalf("paired switch failed: %q / %q", sess.Messages[0].Content, sess.Messages[1].Content)
	}
	if sess.Messages[1].ID != assistantID {
		t.Fatalf("assistant identity changed across edit")
	}
}

func TestEditNonUserMessageIsNoOp(t *testing.T) {
	mock := &MockProvider{Deltas: []Delta{TextDelta{Content: "answer"}}}
	c, r, sid, _ := newTestController(t, mock)

	if err := c.Send(context.Background(), "prompt", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	assistantID := mustGet(t, r, sid).Messages[1].ID
	calls := mock.StreamCalls

	if err := c.Edit(context.Background(), assistantID, "rewrite"); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if mock.StreamCalls != calls {
		t.Fatalf("editing an assistant message reached the provider")
	}
}

func TestDeleteSessionPicksMostRecentRemaining(t *testing.T) {
	mock := &MockProvider{}
	c, r, sid, nav := newTestController(t, mock)

	older := r.Create("older")
	newer := r.Create("newer")
	base := time.Now().UTC()
	r.Upsert(older, func(s *ChatSession) { s.UpdatedAt = base.Add(-time.Hour) })
	r.Upsert(newer, func(s *ChatSession) { s.UpdatedAt = base.Add(time.Hour) })

	c.DeleteSession(sid)

	if c.ActiveSessionID() != newer {
		t.Fatalf("expected most recent session %s active, got %s", newer, c.ActiveSessionID())
	}
	if nav.last() != "session:"+newer {
		t.Fatalf("unexpected navigation: %q", nav.last())
	}

	c.DeleteSession(newer)
	c.DeleteSession(older)
	if c.ActiveSessionID() != "" {
		t.Fatalf("active session survived deleting everything: %q", c.ActiveSessionID())
	}
	if nav.last() != "list" {
		t.Fatalf("expected session list navigation, got %q", nav.last())
	}
}

func TestDeleteInactiveSessionKeepsActive(t *testing.T) {
	mock := &MockProvider{}
	c, r, sid, nav := newTestController(t, mock)
	other := r.Create("other")

	before := nav.last()
	c.DeleteSession(other)

	if c.ActiveSessionID() != sid {
		t.Fatalf("active session changed: %q", c.ActiveSessionID())
	}
	if nav.last() != before {
		t.Fatalf("navigation fired for an inactive delete: %q", nav.last())
	}
}

func TestClearAll(t *testing.T) {
	mock := &MockProvider{}
	c, r, _, nav := newTestController(t, mock)
	r.Create("extra")

	c.ClearAll()

	if r.Len() != 0 {
		t.Fatalf("sessions survived ClearAll: %d", r.Len())
	}
	if c.ActiveSessionID() != "" {
		t.Fatalf("active pointer survived ClearAll")
	}
	if nav.last() != "list" {
		t.Fatalf("expected session list navigation, got %q", nav.last())
	}
}

func TestGenerateTitleBestEffort(t *testing.T) {
	mock := &MockProvider{Title: "A Better Title"}
	c, r, sid, _ := newTestController(t, mock)

	c.generateTitle(sid, "whatever prompt")
	if got := mustGet(t, r, sid).Title; got != "A Better Title" {
		t.Fatalf("title not applied: %q", got)
	}

	mock.TitleErr = errors.New("backend down")
	c.generateTitle(sid, "whatever prompt")
	if got := mustGet(t, r, sid).Title; got != "A Better Title" {
		t.Fatalf("failed title generation overwrote the title: %q", got)
	}
}

func TestSeedTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "New chat"},
		{"   ", "New chat"},
		{"short prompt", "short prompt"},
		{"first line\nsecond line", "first line"},
		{"aaaaaaaaaabbbbbbbbbbccccccccccdd", "aaaaaaaaaabbbbbbbbbbccccccccccdd"},
		{"aaaaaaaaaabbbbbbbbbbccccccccccddx", "aaaaaaaaaabbbbbbbbbbccccccccccdd…"},
	}
	for _, tc := range cases {
		if got := seedTitle(tc.in); got != tc.want {
			t.Errorf("seedTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
