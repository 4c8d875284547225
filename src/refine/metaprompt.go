package refine

import (
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

const metaPrompt = `You are an AI assistant that refines the instructions given to another AI email writing agent.
Your goal is to adjust those instructions so future emails better meet the user's expectations.

PREVIOUS INSTRUCTIONS used to generate an email:
---
%s
---

EMAIL GENERATED from those instructions:
---
%s
---

USER FEEDBACK on the generated email:
---
%s
---

Write IMPROVED INSTRUCTIONS for future emails of the type '%s'.
Rules:
1. Start directly with the instructions. Return one concise block of text with no preamble, explanation or code fences.
2. Keep every template placeholder exactly as written, including the braces: %s. Do not add any other text in curly braces.
3. The instructions must tell the writer to sign off as '%s'.%s
4. The instructions must tell the writer never to leave square brackets, fill-in-the-blank markers or stand-in text in the email it writes.
`

// MetaPrompt builds the rewrite request for ev.
func MetaPrompt(ev FeedbackEvent, signature string) string {
	family := templates.Family(ev.Category)
	names := make([]string, len(family))
	for i, n := range family {
		names[i] = "{" + n + "}"
	}
	urgent := ""
	if ev.Category == triage.UrgentResponse {
		urgent = " They must also promise an update by the next business day."
	}
	return fmt.Sprintf(metaPrompt,
		ev.Previous.Body,
		ev.Output.String(),
		strings.TrimSpace(ev.Feedback),
		ev.Category,
		strings.Join(names, ", "),
		signature,
		urgent,
	)
}
