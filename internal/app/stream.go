package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// StreamTarget names where a generation stream lands. MessageID is empty
// for a fresh send (the engine materializes the assistant message itself on
// the first delta) and set when regenerate/edit pre-created an empty
// version on an existing assistant message.
type StreamTarget struct {
	SessionID string
	MessageID string
}

// StreamMergeEngine folds a delta stream into the active version of one
// assistant message. Per streaming request it walks Uninitialized →
// Initializing → Accumulating → Finalizing, or drops into Failed on any
// stream error. Only one engine run may be active per session; the UI layer
// keeps that contract by disabling send/regenerate/edit while a request is
// in flight.
type StreamMergeEngine struct {
	registry *SessionRegistry
	provider Provider
	logger   *Logger
	lang     string
}

func NewStreamMergeEngine(registry *SessionRegistry, provider Provider, logger *Logger, lang string) *StreamMergeEngine {
	if lang == "" {
		lang = "en"
	}
	return &StreamMergeEngine{
		registry: registry,
		provider: provider,
		logger:   logger,
		lang:     lang,
	}
}

// Run consumes the stream to completion and returns the id of the assistant
// message it filled, or "" when the stream ended without producing anything
// and no message was created. onFirstDelta fires once, when streaming
// actually begins.
//
// Failure rollback: a message materialized by this run is removed from the
// timeline entirely; a pre-existing target loses only the version that was
// created for this request. The timeline never keeps a half-populated
// assistant message.
func (e *StreamMergeEngine) Run(ctx context.Context, target StreamTarget, req GenerateRequest, stream DeltaStream, onFirstDelta func()) (string, error) {
	defer stream.Close()

	messageID := target.MessageID
	createdByRun := false
	received := false

	var accumulated strings.Builder
	var steps []StepRecord

	for {
		delta, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			e.rollback(target.SessionID, messageID, createdByRun)
			return "", classifyStreamError(err)
		}

		if !received {
			received = true
			if onFirstDelta != nil {
				onFirstDelta()
			}
		}

		switch d := delta.(type) {
		case TextDelta:
			accumulated.WriteString(d.Content)
		case StepsDelta:
			steps = cloneSteps(d.Steps)
		}

		if messageID == "" {
			// First chunk: materialize the assistant message with the
			// delta already applied, in one registry mutation. Observers
			// must never see it exist with empty content.
			msg := NewMessage(RoleAssistant, accumulated.String(), nil)
			msg.Versions[0].Steps = cloneSteps(steps)
			msg.syncActiveVersion()
			e.registry.AppendMessage(target.SessionID, msg)
			messageID = msg.ID
			createdByRun = true
			continue
		}

		content := accumulated.String()
		e.registry.UpdateActiveVersion(target.SessionID, messageID, VersionPatch{
			Content: &content,
			Steps:   steps,
		})
	}

	if !received && messageID == "" {
		// Zero output is the same as never starting; no empty assistant
		// bubble appears and no suggestions are fetched.
		return "", nil
	}
	if !received {
		return messageID, nil
	}

	e.finalize(ctx, target.SessionID, messageID, req, accumulated.String())
	return messageID, nil
}

// finalize fetches follow-up suggestions and attaches them. Failures and
// empty results fall back to the bundled pool; nothing here surfaces to the
// caller.
func (e *StreamMergeEngine) finalize(ctx context.Context, sessionID, messageID string, req GenerateRequest, finalText string) {
	suggestions, err := e.provider.SuggestFollowups(ctx, req, finalText)
	if err != nil {
		e.logger.Warn("suggestion generation failed, using fallback pool", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		suggestions = nil
	}
	if len(suggestions) == 0 {
		suggestions = FallbackSuggestions(e.lang, messageID)
	}
	e.registry.AttachSuggestions(sessionID, messageID, suggestions)
}

func (e *StreamMergeEngine) rollback(sessionID, messageID string, createdByRun bool) {
	if messageID == "" {
		return
	}
	if createdByRun {
		e.registry.RemoveMessage(sessionID, messageID)
		return
	}
	e.registry.DropTrailingVersion(sessionID, messageID)
}

// collectHistory converts timeline messages into provider turns using each
// message's active version content.
func collectHistory(messages []Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// emptyVersion builds the placeholder version regenerate/edit park on an
// assistant message before its stream starts.
func emptyVersion() MessageVersion {
	return MessageVersion{Content: "", Timestamp: time.Now().UTC()}
}
