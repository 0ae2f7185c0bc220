package app

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider simulates the generation backend for tests and --mock runs.
// With no script configured it synthesizes a streamed reply from the
// prompt: one think step followed by the text in small chunks.
type MockProvider struct {
	// Deltas, when non-nil, is returned verbatim by every Stream call.
	Deltas []Delta
	// StreamErr is raised after the scripted deltas instead of a normal end.
	StreamErr error
	// StartErr makes Stream fail before any delta is produced.
	StartErr error

	Title    string
	TitleErr error

	Suggestions []string
	SuggestErr  error

	// StreamCalls counts Stream invocations; tests assert on it.
	StreamCalls int
	// LastRequest records the request of the most recent Stream call.
	LastRequest GenerateRequest
}

func (m *MockProvider) Stream(_ context.Context, req GenerateRequest) (DeltaStream, error) {
	m.StreamCalls++
	m.LastRequest = req
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	if m.Deltas != nil {
		return newSliceStream(m.Deltas, m.StreamErr), nil
	}
	return newSliceStream(synthesizeDeltas(req.Prompt), m.StreamErr), nil
}

func (m *MockProvider) GenerateTitle(_ context.Context, _, prompt string) (string, error) {
	if m.TitleErr != nil {
		return "", m.TitleErr
	}
	if m.Title != "" {
		return m.Title, nil
	}
	return seedTitle(prompt), nil
}

func (m *MockProvider) SuggestFollowups(_ context.Context, _ GenerateRequest, _ string) ([]string, error) {
	if m.SuggestErr != nil {
		return nil, m.SuggestErr
	}
	return m.Suggestions, nil
}

// synthesizeDeltas fakes a plausible stream: a think step, then the reply
// text word by word.
func synthesizeDeltas(prompt string) []Delta {
	reply := fmt.Sprintf("You said: %s. This is a mock reply, no model was contacted.", strings.TrimSpace(prompt))
	deltas := []Delta{
		StepsDelta{Steps: []StepRecord{{
			Kind:   "think",
			Title:  "Thinking",
			Detail: "Composing a canned reply.",
		}}},
	}
	words := strings.SplitAfter(reply, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		deltas = append(deltas, TextDelta{Content: w})
	}
	return deltas
}
