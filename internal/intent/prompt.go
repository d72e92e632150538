package intent

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/dispatch"
)

// promptHeader is the fixed part of the intent prompt. The catalog and
// the utterance are appended by BuildPrompt.
const promptHeader = `You are the command parser of a desktop assistant. Convert the user's request into exactly one JSON object. Output nothing else: no markdown, no explanation.

The object has one of two shapes, and no other top-level keys:

1. A single action:
{"action": "<action name>", "parameters": {"<key>": <value>, ...}}

2. A workflow of several actions run in order:
{"steps": [{"action": "<action name>", "parameters": {...}}, ...], "description": "<short label for the workflow>"}

Rules:
- "action" must be one of the names in the catalog below, spelled exactly.
- Only use a workflow when the request clearly asks for two or more actions in sequence. A workflow needs at least two steps and a description. Steps never contain their own "steps".
- Use the parameter keys listed for the action. Keys marked with ? are optional; omit them when the user did not say.
- Keep names of people, files, apps and places exactly as the user said them. Do not guess or expand them.
- Questions about the current time or date use get_time or get_date, never search_web.
- Greetings, small talk, opinions and general questions use conversational_ai with the full request as "message".
- If the request cannot be mapped to any action at all, return {"action": "error", "parameters": {"error": "<short reason>"}}.`

// BuildPrompt renders the intent prompt for utterance. The catalog must
// be sorted (dispatch.Registry.Catalog is) so the prompt is
// deterministic.
func BuildPrompt(catalog []dispatch.Entry, utterance string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nCatalog:\n")
	for _, e := range catalog {
		fmt.Fprintf(&b, "- %s(%s)", e.Name, strings.Join(e.Params, ", "))
		if e.Description != "" {
			b.WriteString(": ")
			b.WriteString(e.Description)
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nUser request:\n")
	b.WriteString(strings.TrimSpace(utterance))
	b.WriteString("\n\nJSON:")
	return b.String()
}
