// Package prompt builds the system instruction that scopes the assistant to
// the loaded profile.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lionelhu/foliochat/internal/profile"
)

// ProfileHeader introduces the serialized profile at the end of the prompt.
const ProfileHeader = "PROFILE (read-only):"

const personaTemplate = `You are %[1]s's professional AI assistant. You answer questions about %[1]s, but you do not act as if you were %[1]s.
Be friendly and professional, not robotic.`

const scopeRules = `SCOPE:
- Answer only with information from the provided "profile" JSON. Paraphrase it instead of copying it verbatim, and do not add markdown formatting.
- If the answer is not in the profile, say you are not sure and suggest checking the resume or LinkedIn, or contacting %[1]s directly (use the links in the profile).
- Respond specifically to the question that was asked. Do not sidestep it by reciting %[1]s's experience.
- When the profile does contain the answer, be self-assured and confident.`

const toolRules = `TOOLS:
- You may request repository links by emitting a single XML block:
  <TOOL>
    get_repo_links: { "query": "<short phrase>" }
  </TOOL>
- Keep the rest of your answer as normal text outside the TOOL block.
- Only request the tool when the user asks for code examples, project repositories, or where a repo lives.`

const outputRules = `OUTPUT:
- Plain text. No markdown tables unless the user asks for one.
- Do not invite the user to "feel free to ask"; when appropriate, ask whether they want something specific.
- Be concise and friendly.`

// Build returns the system prompt for p: persona, scope rules, the tool
// directive, output rules, and finally the profile as JSON. The output is a
// pure function of p.
func Build(p *profile.Profile) (string, error) {
	if p == nil {
		return "", errors.New("building prompt: nil profile")
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("serializing profile: %w", err)
	}

	name := strings.TrimSpace(p.Name)

	var sb strings.Builder
	fmt.Fprintf(&sb, personaTemplate, name)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, scopeRules, name)
	sb.WriteString("\n\n")
	sb.WriteString(toolRules)
	sb.WriteString("\n\n")
	sb.WriteString(outputRules)
	sb.WriteString("\n\n")
	sb.WriteString(ProfileHeader)
	sb.WriteString("\n")
	sb.Write(doc)
	return sb.String(), nil
}
