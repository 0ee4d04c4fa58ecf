// Package llm defines the text generation port used by the answer formatter.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single grounded generation call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator produces a completion for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrTransport wraps failures to reach the generation service.
var ErrTransport = errors.New("transport error")

// StatusError is a non-2xx answer from the generation service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// IsConnection reports whether err came from the transport or a status response.
func IsConnection(err error) bool {
	var se *StatusError
	return errors.Is(err, ErrTransport) || errors.As(err, &se)
}
