// Package toolcall finds the repository-lookup directive a model may embed
// in its reply:
//
//	<TOOL>
//	  get_repo_links: { "query": "<short phrase>" }
//	</TOOL>
//
// Parsing is tolerant. Anything that does not fit the shape is treated as
// ordinary text and never reported as an error.
package toolcall

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Name is the only tool the model is told about.
const Name = "get_repo_links"

var (
	blockRe   = regexp.MustCompile(`(?is)<TOOL>(.*?)</TOOL>`)
	payloadRe = regexp.MustCompile(`(?is)` + Name + `\s*:\s*(\{.*\})`)
)

// Directive is a successfully parsed tool call.
type Directive struct {
	// Query is the search phrase the model asked for.
	Query string
	// Span is the exact text of the block, delimiters included.
	Span string
}

// Extract returns the directive carried by the first <TOOL> block in text.
// Only that block is considered; if it is malformed the result is false even
// when later blocks would parse.
func Extract(text string) (Directive, bool) {
	m := blockRe.FindStringSubmatch(text)
	if m == nil {
		return Directive{}, false
	}

	p := payloadRe.FindStringSubmatch(m[1])
	if p == nil {
		slog.Debug("tool block without get_repo_links payload", "block", m[0])
		return Directive{}, false
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(p[1]), &args); err != nil || args == nil {
		slog.Debug("tool payload is not a JSON object", "payload", p[1], "error", err)
		return Directive{}, false
	}
	var query string
	raw := bytes.TrimSpace(args["query"])
	if len(raw) == 0 || raw[0] != '"' || json.Unmarshal(raw, &query) != nil {
		slog.Debug("tool payload has no string query", "payload", p[1])
		return Directive{}, false
	}

	return Directive{Query: query, Span: m[0]}, true
}

// Strip removes the first occurrence of d.Span from text and trims the
// result.
func Strip(text string, d Directive) string {
	if d.Span == "" {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.Replace(text, d.Span, "", 1))
}
