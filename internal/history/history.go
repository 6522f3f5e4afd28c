// Package history bounds the conversation window sent to the completion
// service.
package history

import (
	"encoding/json"
	"unicode/utf8"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	DefaultMaxMessages = 12
	DefaultMaxChars    = 6000
)

// Message is a single chat turn as exchanged with the page renderer.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Limits caps the window by message count and by cumulative content length
// (in characters). Zero or negative values select the defaults.
type Limits struct {
	MaxMessages int
	MaxChars    int
}

func (l Limits) normalized() Limits {
	if l.MaxMessages <= 0 {
		l.MaxMessages = DefaultMaxMessages
	}
	if l.MaxChars <= 0 {
		l.MaxChars = DefaultMaxChars
	}
	return l
}

// ValidRole reports whether role is one of the two roles a caller may send.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Decode extracts well-formed messages from an untrusted JSON value. Anything
// that is not an array yields an empty slice; array entries that are not
// objects, carry an unknown role, or have non-string content are dropped.
func Decode(raw json.RawMessage) []Message {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []Message{}
	}

	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(e, &fields); err != nil || fields == nil {
			continue
		}
		var role, content string
		if err := json.Unmarshal(fields["role"], &role); err != nil || !ValidRole(role) {
			continue
		}
		if err := json.Unmarshal(fields["content"], &content); err != nil {
			continue
		}
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}

// Truncate returns the most recent suffix of msgs that fits both limits.
//
// Messages with an unknown role are discarded first. The last MaxMessages
// survivors are kept, then the window is walked newest to oldest summing
// content length; the first message that would push the total past MaxChars
// is dropped together with everything older. Order is preserved.
func Truncate(msgs []Message, lim Limits) []Message {
	lim = lim.normalized()

	valid := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if ValidRole(m.Role) {
			valid = append(valid, m)
		}
	}

	if len(valid) > lim.MaxMessages {
		valid = valid[len(valid)-lim.MaxMessages:]
	}

	total := 0
	start := len(valid)
	for i := len(valid) - 1; i >= 0; i-- {
		total += utf8.RuneCountInString(valid[i].Content)
		if total > lim.MaxChars {
			break
		}
		start = i
	}

	out := make([]Message, len(valid)-start)
	copy(out, valid[start:])
	return out
}
