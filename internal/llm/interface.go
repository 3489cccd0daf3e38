package llm

import (
	"context"

	"github.com/comigor/filechat/internal/session"
)

// Stream is a finite, non-restartable sequence of response text fragments.
// Recv returns io.EOF when the service signals completion.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client is the minimal inference surface used by the agent; it is easy to
// mock in tests.
type Client interface {
	StreamChat(ctx context.Context, turns []session.Turn) (Stream, error)
}

// InferenceError reports a failed call to the inference service, either on
// connect or mid-stream. No retries are performed; the user must resubmit.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference service call failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }
