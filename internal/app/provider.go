package app

import (
	"context"
	"io"
)

// Delta is one incremental unit of streamed generation output. Exactly two
// variants exist: TextDelta appends to the accumulated text, StepsDelta
// replaces the current step list wholesale.
type Delta interface {
	isDelta()
}

type TextDelta struct {
	Content string
}

type StepsDelta struct {
	Steps []StepRecord
}

func (TextDelta) isDelta()  {}
func (StepsDelta) isDelta() {}

// DeltaStream is a lazy, finite, non-restartable sequence of deltas.
// Recv returns io.EOF after the last element; any other error aborts the
// stream. Close releases the underlying transport and is safe to call more
// than once.
type DeltaStream interface {
	Recv() (Delta, error)
	Close()
}

// Turn is one prior exchange handed to the provider as history.
type Turn struct {
	Role    string
	Content string
}

// GenerateRequest carries everything a provider needs for one generation.
type GenerateRequest struct {
	Model       string
	History     []Turn
	Prompt      string
	Attachments []Attachment
}

// Provider is the narrow contract to the model backend: the streaming
// generation plus the two best-effort helpers whose failures are absorbed
// locally (title seeding keeps the truncated prompt, suggestions fall back
// to the static pool).
type Provider interface {
	Stream(ctx context.Context, req GenerateRequest) (DeltaStream, error)
	GenerateTitle(ctx context.Context, model, prompt string) (string, error)
	SuggestFollowups(ctx context.Context, req GenerateRequest, finalText string) ([]string, error)
}

// sliceStream adapts a fixed delta list to DeltaStream. Tests and the mock
// provider use it; failErr, when set, is raised after the deltas run out
// instead of io.EOF.
type sliceStream struct {
	deltas  []Delta
	pos     int
	failErr error
}

func newSliceStream(deltas []Delta, failErr error) *sliceStream {
	return &sliceStream{deltas: deltas, failErr: failErr}
}

func (s *sliceStream) Recv() (Delta, error) {
	if s.pos >= len(s.deltas) {
		if s.failErr != nil {
			return nil, s.failErr
		}
		return nil, io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *sliceStream) Close() {}
