package app

import (
	"errors"
	"fmt"
)

var (
	// ErrNoModelSelected is a configuration error: detected before any
	// mutation, surfaced to the user as a blocking notice.
	ErrNoModelSelected = errors.New("no model selected")

	// ErrEmptyPrompt rejects a send with neither text nor attachments.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrRequestInFlight rejects send/edit/regenerate while the active
	// session already has a streaming request running.
	ErrRequestInFlight = errors.New("a request is already in flight for this session")

	// ErrQuotaExceeded marks a provider rate/quota signal. It gets its own
	// user-facing message, distinct from generic generation failures.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
)

// GenerationError wraps any non-quota failure raised by the generation
// stream. The partial assistant message, if one was materialized, has
// already been rolled back by the time this surfaces.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// classifyStreamError folds provider failures into the taxonomy: quota
// signals keep their sentinel, everything else becomes a GenerationError.
func classifyStreamError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{Cause: err}
}
