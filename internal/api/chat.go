package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lionelhu/foliochat/internal/chat"
	"github.com/lionelhu/foliochat/internal/history"
	"github.com/lionelhu/foliochat/internal/repos"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Answerer is the part of chat.Service the HTTP and MCP layers use.
type Answerer interface {
	AnswerWithMetadata(ctx context.Context, msgs []history.Message) (chat.Response, chat.Metadata, error)
	Lookup(query string) []repos.Link
}

// NewHandler returns the public HTTP surface:
//
//	GET  /health
//	POST /api/chat
//	GET  /api/repos?q=<query>
func NewHandler(svc Answerer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/health", handleHealth)
	r.Post("/api/chat", handleChat(svc))
	r.Get("/api/repos", handleRepoSearch(svc))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// chatRequest is decoded leniently: a body that is unreadable, not JSON, or
// lacks a messages array is an empty conversation, not a client error.
type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
}

func handleChat(svc Answerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("chat handler panic", "request_id", reqID, "panic", rec)
				writeServerError(w)
			}
		}()

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if data, err := io.ReadAll(r.Body); err != nil {
			slog.Debug("unreadable chat body", "request_id", reqID, "error", err)
		} else if err := json.Unmarshal(data, &req); err != nil {
			slog.Debug("chat body is not a JSON object", "request_id", reqID, "error", err)
		}
		msgs := history.Decode(req.Messages)

		resp, meta, err := svc.AnswerWithMetadata(r.Context(), msgs)
		if err != nil {
			slog.Error("chat failed", "request_id", reqID, "error", err)
			writeServerError(w)
			return
		}

		slog.Info("chat answered",
			"request_id", reqID,
			"messages_in", meta.MessagesIn,
			"messages_kept", meta.MessagesKept,
			"fallback", meta.Fallback,
			"tool_call", meta.ToolCall,
			"links", meta.Links,
			"duration_ms", meta.Duration.Milliseconds(),
		)
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleRepoSearch(svc Answerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query parameter q is required")
			return
		}
		links := svc.Lookup(q)
		slog.Debug("repo search", "query", q, "links", len(links), "duration_ms", time.Since(start).Milliseconds())
		writeJSON(w, http.StatusOK, map[string]any{"repoLinks": links})
	}
}

func writeServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, chat.Response{
		Text:      chat.ServerErrorText,
		RepoLinks: []repos.Link{},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
