// Package completion talks to the hosted chat model. Each call is a single
// attempt: failures are returned to the caller, never retried.
package completion

import (
	"context"
	"fmt"

	"github.com/lionelhu/foliochat/internal/config"
	"github.com/lionelhu/foliochat/internal/history"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gpt-4o-mini"

// Request is one completion: a system instruction followed by the
// conversation window.
type Request struct {
	System   string
	Messages []history.Message
}

// Completer produces the model's reply text for a request. An empty string
// with a nil error means the model answered with nothing.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the Completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.CompletionConfig) (Completer, error) {
	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}
