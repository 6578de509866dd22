// Package llm adapts provider SDKs to a single completion contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/tripcraft/tripgen/pkg/models"
)

// ErrTransient marks failures worth retrying with the same prompt and model:
// timeouts, transport errors, provider throttling and provider 5xx.
var ErrTransient = errors.New("transient provider failure")

// ErrEmptyResponse is returned when a provider answers with no content. The
// Completion returned with it still carries the usage the provider billed.
var ErrEmptyResponse = errors.New("provider returned no content")

// DefaultCallTimeout bounds a call made with a non-positive timeout.
const DefaultCallTimeout = 60 * time.Second

// Request is a single completion request.
type Request struct {
	System    string
	User      string
	Model     string
	MaxTokens int64
}

// Completion is a provider's answer and the tokens it billed.
type Completion struct {
	Content string
	Usage   models.TokenUsage
}

// Client completes prompts against one provider. Implementations must bound
// the call by timeout. On error the Completion may still report billed usage.
type Client interface {
	Complete(ctx context.Context, req Request, timeout time.Duration) (Completion, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request, timeout time.Duration) (Completion, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request, timeout time.Duration) (Completion, error) {
	return f(ctx, req, timeout)
}

// IsTransient reports whether err qualifies for a retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

type providerError struct {
	provider  string
	status    int
	transient bool
	err       error
}

func (e *providerError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.provider, e.status, e.err)
	}
	return fmt.Sprintf("%s: %v", e.provider, e.err)
}

func (e *providerError) Unwrap() []error {
	if e.transient {
		return []error{e.err, ErrTransient}
	}
	return []error{e.err}
}

// classify wraps err with the provider name, marking it transient when the
// deadline passed, the transport failed or status is 408, 429 or 5xx.
func classify(ctx context.Context, provider string, status int, err error) error {
	transient := false
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		transient = true
	case status == 408 || status == 429 || status >= 500:
		transient = true
	case status == 0 && isNetError(err):
		transient = true
	}
	return &providerError{provider: provider, status: status, transient: transient, err: err}
}

func isNetError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
