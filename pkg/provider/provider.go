// Package provider defines the boundary to the speech, language and avatar
// collaborators and the timeout policy every call to them goes through.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

type QuestionRequest struct {
	Job        entity.JobContext
	Competency *entity.Competency
	// History is the ledger so far, oldest first.
	History  []*entity.Turn
	FollowUp *entity.FollowUpSignal
}

// QuestionGenerator produces the interviewer's next utterance.
type QuestionGenerator interface {
	NextQuestion(ctx context.Context, req QuestionRequest) (string, error)
}

// SpeechOutput is whatever renders the interviewer's voice. Interrupt must
// return quickly; it is called on the barge-in path.
type SpeechOutput interface {
	Interrupt(ctx context.Context, sessionID uuid.UUID) error
}

// Call runs fn with a deadline. Deadline expiry maps to ErrProviderTimeout
// and any other failure to ErrProviderError, so callers can apply a single
// degradation policy.
func Call[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err == nil {
			return r.v, nil
		}
		return zero, classify(name, r.err)
	case <-ctx.Done():
		return zero, classify(name, ctx.Err())
	}
}

func classify(name string, err error) error {
	switch {
	case errors.Is(err, apperror.ErrProviderTimeout), errors.Is(err, apperror.ErrProviderError):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", name, apperror.ErrProviderTimeout)
	default:
		return fmt.Errorf("%s: %w: %v", name, apperror.ErrProviderError, err)
	}
}
