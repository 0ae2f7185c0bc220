package app

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is one independent conversation thread. The registry owns all
// sessions; nothing outside it may hold a mutable reference across an
// asynchronous boundary.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a session timeline. Content and Steps always mirror
// the active version; every mutation path keeps them in sync.
type Message struct {
	ID          string           `json:"id"`
	Role        string           `json:"role"` // user|assistant
	Content     string           `json:"content"`
	Attachments []Attachment     `json:"attachments,omitempty"`
	Steps       []StepRecord     `json:"steps,omitempty"`
	Versions    []MessageVersion `json:"versions"`
	// CurrentVersionIndex addresses the active version; 0 <= index < len(Versions).
	CurrentVersionIndex int       `json:"current_version_index"`
	Suggestions         []string  `json:"suggestions,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// MessageVersion is one historical variant of a message, created by the
// initial append, an edit, or a regenerate. Versions are append-only and
// never mutated after their stream completes.
type MessageVersion struct {
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Steps       []StepRecord `json:"steps,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Attachment is a named piece of user-supplied context, inline or by
// reference. Set once at version creation, immutable afterwards.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// StepRecord is a UI-visible record of an intermediate generation action
// (reasoning, tool call, file edit) shown alongside assistant output.
type StepRecord struct {
	Kind   string `json:"kind"` // think|tool|edit
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NewMessage builds a message with a single initial version mirroring
// content and attachments.
func NewMessage(role, content string, attachments []Attachment) Message {
	now := time.Now().UTC()
	return Message{
		ID:          uuid.NewString(),
		Role:        role,
		Content:     content,
		Attachments: attachments,
		Versions: []MessageVersion{{
			Content:     content,
			Attachments: attachments,
			Timestamp:   now,
		}},
		CurrentVersionIndex: 0,
		CreatedAt:           now,
	}
}

// ActiveVersion returns a pointer to the current version, or nil when the
// message has no versions (never the case for messages built via NewMessage).
func (m *Message) ActiveVersion() *MessageVersion {
	if m.CurrentVersionIndex < 0 || m.CurrentVersionIndex >= len(m.Versions) {
		return nil
	}
	return &m.Versions[m.CurrentVersionIndex]
}

// syncActiveVersion mirrors the active version's content/steps into the
// message's denormalized fields.
func (m *Message) syncActiveVersion() {
	v := m.ActiveVersion()
	if v == nil {
		return
	}
	m.Content = v.Content
	m.Steps = cloneSteps(v.Steps)
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// Clone returns a deep copy of the message and its versions.
func (m Message) Clone() Message {
	out := m
	out.Attachments = cloneAttachments(m.Attachments)
	out.Steps = cloneSteps(m.Steps)
	out.Suggestions = cloneStrings(m.Suggestions)
	out.Versions = make([]MessageVersion, len(m.Versions))
	for i, v := range m.Versions {
		cv := v
		cv.Attachments = cloneAttachments(v.Attachments)
		cv.Steps = cloneSteps(v.Steps)
		out.Versions[i] = cv
	}
	return out
}

func cloneSteps(in []StepRecord) []StepRecord {
	if in == nil {
		return nil
	}
	out := make([]StepRecord, len(in))
	copy(out, in)
	return out
}

func cloneAttachments(in []Attachment) []Attachment {
	if in == nil {
		return nil
	}
	out := make([]Attachment, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
