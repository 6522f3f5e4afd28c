// Package chat answers one conversation turn: it bounds the window, asks the
// completion service, and resolves an embedded repository directive.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lionelhu/foliochat/internal/completion"
	"github.com/lionelhu/foliochat/internal/history"
	"github.com/lionelhu/foliochat/internal/profile"
	"github.com/lionelhu/foliochat/internal/prompt"
	"github.com/lionelhu/foliochat/internal/repos"
	"github.com/lionelhu/foliochat/internal/toolcall"
)

const (
	// FallbackText is returned when the model fails or answers with nothing.
	FallbackText = "Sorry, I couldn't generate a response."
	// ServerErrorText is the body text for unexpected internal faults.
	ServerErrorText = "Server error. Please try again."
)

// ErrInternal marks a fault inside the service itself, as opposed to an
// upstream failure (which is answered with FallbackText).
var ErrInternal = errors.New("internal error")

// Response is the answer returned to the page.
type Response struct {
	Text      string       `json:"text"`
	RepoLinks []repos.Link `json:"repoLinks"`
}

// Metadata describes how an answer was produced.
type Metadata struct {
	MessagesIn   int
	MessagesKept int
	Fallback     bool
	ToolCall     bool
	Query        string
	Links        int
	Duration     time.Duration
}

// Service is safe for concurrent use: everything it holds is read-only.
type Service struct {
	completer completion.Completer
	catalog   *repos.Catalog
	limits    history.Limits
	system    string
}

// NewService builds the system prompt from p once and returns a Service
// answering with c.
func NewService(c completion.Completer, p *profile.Profile, catalog *repos.Catalog, limits history.Limits) (*Service, error) {
	system, err := prompt.Build(p)
	if err != nil {
		return nil, err
	}
	return &Service{
		completer: c,
		catalog:   catalog,
		limits:    limits,
		system:    system,
	}, nil
}

// SystemPrompt returns the instruction sent ahead of every window.
func (s *Service) SystemPrompt() string {
	return s.system
}

// Answer runs one turn. Upstream errors and empty completions yield
// FallbackText with a nil error; only faults inside the service (including
// panics) return an error, wrapping ErrInternal.
func (s *Service) Answer(ctx context.Context, msgs []history.Message) (Response, error) {
	resp, _, err := s.AnswerWithMetadata(ctx, msgs)
	return resp, err
}

// AnswerWithMetadata is Answer plus diagnostics for logging.
func (s *Service) AnswerWithMetadata(ctx context.Context, msgs []history.Message) (resp Response, meta Metadata, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while answering", "panic", r, "stack", string(debug.Stack()))
			resp = Response{}
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		meta.Duration = time.Since(start)
	}()

	window := history.Truncate(msgs, s.limits)
	meta.MessagesIn = len(msgs)
	meta.MessagesKept = len(window)

	text, cerr := s.completer.Complete(ctx, completion.Request{System: s.system, Messages: window})
	if cerr != nil {
		slog.Warn("completion failed", "error", cerr)
	}
	text = strings.TrimSpace(text)
	if cerr != nil || text == "" {
		meta.Fallback = true
		return Response{Text: FallbackText, RepoLinks: []repos.Link{}}, meta, nil
	}

	d, ok := toolcall.Extract(text)
	if !ok {
		return Response{Text: text, RepoLinks: []repos.Link{}}, meta, nil
	}

	links := s.catalog.Match(d.Query)
	meta.ToolCall = true
	meta.Query = d.Query
	meta.Links = len(links)
	slog.Debug("repo lookup", "query", d.Query, "links", len(links))

	return Response{Text: toolcall.Strip(text, d), RepoLinks: links}, meta, nil
}

// Lookup exposes the catalog matcher directly.
func (s *Service) Lookup(query string) []repos.Link {
	return s.catalog.Match(query)
}
