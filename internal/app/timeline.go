package app

import "time"

// VersionPatch is a partial update against a message's active version.
// Nil fields leave the corresponding value unchanged; Steps is a full
// replacement, never an append. Applying the same patch twice must be
// indistinguishable from applying it once; the merge engine reapplies
// against whatever snapshot is current.
type VersionPatch struct {
	Content *string
	Steps   []StepRecord
}

// AppendMessage appends to the end of the session timeline and refreshes
// the session's recency timestamp.
func (r *SessionRegistry) AppendMessage(sessionID string, msg Message) {
	r.Upsert(sessionID, func(s *ChatSession) {
		s.Messages = append(s.Messages, msg)
		s.UpdatedAt = time.Now().UTC()
	})
}

// RemoveMessage deletes a message from the timeline. Used by failure
// rollback; a half-populated assistant message must never survive.
func (r *SessionRegistry) RemoveMessage(sessionID, messageID string) {
	r.Upsert(sessionID, func(s *ChatSession) {
		for i := range s.Messages {
			if s.Messages[i].ID == messageID {
				s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
				return
			}
		}
	})
}

// CreateVersion appends a new version to the message, moves the active
// pointer onto it and mirrors content/steps. Returns the new version index,
// or -1 if the session or message does not exist.
func (r *SessionRegistry) CreateVersion(sessionID, messageID string, version MessageVersion) int {
	index := -1
	r.Upsert(sessionID, func(s *ChatSession) {
		msg := findMessage(s, messageID)
		if msg == nil {
			return
		}
		if version.Timestamp.IsZero() {
			version.Timestamp = time.Now().UTC()
		}
		msg.Versions = append(msg.Versions, version)
		msg.CurrentVersionIndex = len(msg.Versions) - 1
		msg.syncActiveVersion()
		index = msg.CurrentVersionIndex
	})
	return index
}

// DropTrailingVersion removes the newest version of a message and moves the
// pointer back onto the previous one. No-op when only one version remains.
// This is the rollback path for a failed regenerate/edit stream.
func (r *SessionRegistry) DropTrailingVersion(sessionID, messageID string) {
	r.Upsert(sessionID, func(s *ChatSession) {
		msg := findMessage(s, messageID)
		if msg == nil || len(msg.Versions) < 2 {
			return
		}
		msg.Versions = msg.Versions[:len(msg.Versions)-1]
		if msg.CurrentVersionIndex >= len(msg.Versions) {
			msg.CurrentVersionIndex = len(msg.Versions) - 1
		}
		msg.syncActiveVersion()
	})
}

// UpdateActiveVersion merges the patch into the active version and mirrors
// it into the message's denormalized content/steps, atomically.
func (r *SessionRegistry) UpdateActiveVersion(sessionID, messageID string, patch VersionPatch) {
	r.Upsert(sessionID, func(s *ChatSession) {
		msg := findMessage(s, messageID)
		if msg == nil {
			return
		}
		v := msg.ActiveVersion()
		if v == nil {
			return
		}
		if patch.Content != nil {
			v.Content = *patch.Content
		}
		if patch.Steps != nil {
			v.Steps = cloneSteps(patch.Steps)
		}
		msg.syncActiveVersion()
	})
}

// SetVersionPointer moves the active version pointer. When the target is a
// user message immediately followed by its assistant reply, the assistant's
// pointer moves to the same index so edit/regenerate branches stay paired,
// but only if that index exists in the assistant's version list; otherwise
// the assistant pointer is left where it was.
func (r *SessionRegistry) SetVersionPointer(sessionID, messageID string, index int) {
	r.Upsert(sessionID, func(s *ChatSession) {
		pos := -1
		for i := range s.Messages {
			if s.Messages[i].ID == messageID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return
		}
		msg := &s.Messages[pos]
		if index < 0 || index >= len(msg.Versions) {
			return
		}
		msg.CurrentVersionIndex = index
		msg.syncActiveVersion()

		if msg.Role != RoleUser || pos+1 >= len(s.Messages) {
			return
		}
		reply := &s.Messages[pos+1]
		if reply.Role != RoleAssistant || index >= len(reply.Versions) {
			return
		}
		reply.CurrentVersionIndex = index
		reply.syncActiveVersion()
	})
}

// AttachSuggestions stores follow-up prompts on an assistant message.
func (r *SessionRegistry) AttachSuggestions(sessionID, messageID string, suggestions []string) {
	r.Upsert(sessionID, func(s *ChatSession) {
		msg := findMessage(s, messageID)
		if msg == nil || msg.Role != RoleAssistant {
			return
		}
		msg.Suggestions = cloneStrings(suggestions)
	})
}

func findMessage(s *ChatSession, messageID string) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == messageID {
			return &s.Messages[i]
		}
	}
	return nil
}
