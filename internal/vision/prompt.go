package vision

import (
	"fmt"
	"strings"
)

const instructions = `You are reviewing a rendered landscaping estimate or invoice before it is sent to a client.

Score the page image against each criterion in the checklist from 0 (unacceptable) to 10 (flawless). Judge only what is visible in the image. Placeholder text, empty sections, misaligned tables, clipped content and inconsistent totals all lower the relevant scores.`

const spec = `Respond with a JSON object matching this exact structure:

{
  "score": 0,
  "ready_for_client": false,
  "summary": "<one or two sentences>",
  "findings": [
    {"criterion": "<criterion id>", "score": 0, "notes": "<what you observed>"}
  ]
}

Field constraints:
- score: Overall score from 0 to 10.
- ready_for_client: true only if the document could be sent without edits.
- findings: Exactly one entry per checklist criterion, using the criterion
  id shown in brackets.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Do not invent criteria that are not in the checklist`

// Prompt builds the system prompt for the given criteria.
func Prompt(criteria []Criterion) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nChecklist:\n")
	for _, c := range criteria {
		fmt.Fprintf(&sb, "- [%s] %s\n", c, c.Describe())
	}
	sb.WriteString("\n")
	sb.WriteString(spec)
	return sb.String()
}
