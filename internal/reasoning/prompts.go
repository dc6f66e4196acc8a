// Package reasoning – prompt construction.
//
// Each stage gets a single user-role prompt that embeds the instructions,
// the context (events, current spec, current artifact), and the exact JSON
// format the answer must end with.
package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// marshalIndent is a small helper for embedding structures in prompts.
// Marshal failures cannot happen for the domain types involved; the empty
// string keeps the prompt well-formed regardless.
func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// eventLine renders one event for the numbered prompt list. Non-text kinds
// show their kind tag so the service knows something happened even without
// transcribable content.
func eventLine(i int, e domain.PromptEvent) string {
	text := e.Text
	if text == "" {
		text = "[" + e.Kind + "]"
	}
	return fmt.Sprintf("[%d] Participant %s at %s: %s", i+1, e.ParticipantID, e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), text)
}

// analyzerPrompt asks the service to classify the events as additive or
// conflicting and to prioritize them. Indices in the answer are 1-based
// positions in the rendered list.
func analyzerPrompt(events []domain.PromptEvent, currentSpec *domain.SpecContent) string {
	var b strings.Builder
	b.WriteString("You are analyzing user prompts in a collaborative design tool to detect conflicts and determine priorities.\n\n")

	if currentSpec != nil {
		b.WriteString("CURRENT APP STATE:\n")
		b.WriteString(marshalIndent(currentSpec))
		b.WriteString("\nConsider how new prompts fit with or contradict the existing design.\n\n")
	} else {
		b.WriteString("No current design exists yet - this is a fresh start.\n\n")
	}

	b.WriteString("RECENT PROMPTS (in chronological order, [1] = first submitted):\n")
	for i, e := range events {
		b.WriteString(eventLine(i, e))
		b.WriteByte('\n')
	}

	b.WriteString(`
YOUR TASK:
1. Determine if these prompts are ADDITIVE (can coexist) or CONFLICTING (mutually exclusive or contradictory).
2. For conflicts, decide which prompt takes priority based on coherence with the existing state, feasibility, how fundamental the change is, and timing.
3. Think through your reasoning step by step, then give a clear decision.

RULES:
- ALWAYS prioritize at least one prompt; never leave all prompts unimplemented.
- PREFER additive or tension-bearing combinations over hard conflicts.
- Mark "mutually_exclusive" only when the prompts truly cannot be combined.
- Every conflict MUST name a winner from its promptIds.
- "prioritizedPrompts" MUST list ALL prompt numbers in priority order (highest first); it is never empty.

RESPONSE FORMAT (end your answer with ONLY this JSON object, using prompt numbers):
{
  "additive": [{ "promptIds": [1, 2], "explanation": "..." }],
  "conflicts": [{ "promptIds": [1, 2], "type": "mutually_exclusive" | "contradictory", "winner": 1, "reasoning": "...", "confidence": 0.85 }],
  "prioritizedPrompts": [1, 2, 3]
}
`)
	return b.String()
}

// plannerPrompt asks the service to synthesize a design spec that blends the
// prioritized prompts into the current spec. Events are expected in priority
// order, highest first.
func plannerPrompt(req PlanRequest) string {
	var b strings.Builder
	b.WriteString("You are a design planner for a collaborative sandbox. Given multiple user inputs (potentially conflicting), synthesize a unified design spec JSON that BLENDS all ideas.\n\n")

	if req.CurrentSpec != nil {
		b.WriteString("Current design state:\n")
		b.WriteString(marshalIndent(req.CurrentSpec))
		b.WriteString("\n\nYour task: BLEND the new prompts with the existing design. DO NOT discard existing components unless explicitly contradicted. Show tensions between different participants' visions.\n\n")
	}

	texts := make(map[string]string, len(req.Events))
	for _, e := range req.Events {
		if e.Text != "" {
			texts[e.ID] = e.Text
		} else {
			texts[e.ID] = "[" + e.Kind + "]"
		}
	}

	if len(req.Analysis.Conflicts) > 0 {
		b.WriteString("CONFLICT RESOLUTION:\n")
		for _, c := range req.Analysis.Conflicts {
			var losers []string
			for _, id := range c.PromptIDs {
				if id != c.Winner {
					if t, ok := texts[id]; ok {
						losers = append(losers, t)
					}
				}
			}
			fmt.Fprintf(&b, "- %q WINS over %q (%s)\n", texts[c.Winner], strings.Join(losers, `", "`), c.Type)
			fmt.Fprintf(&b, "  Reasoning: %s\n", c.Reasoning)
			b.WriteString("  CRITICAL: Implement the winner's intent, ignore the conflicting aspects of the losers.\n\n")
		}
	}
	if len(req.Analysis.Additive) > 0 {
		b.WriteString("ADDITIVE PROMPTS (implement all of these together):\n")
		for i, g := range req.Analysis.Additive {
			fmt.Fprintf(&b, "Group %d: %s\n", i+1, g.Explanation)
			for _, id := range g.PromptIDs {
				if t, ok := texts[id]; ok {
					fmt.Fprintf(&b, "  - %q\n", t)
				}
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("ALL PROMPTS (in priority order, most important first):\n")
	for i, e := range req.Events {
		fmt.Fprintf(&b, "%d. %q\n", i+1, texts[e.ID])
	}
	b.WriteString("\nINSTRUCTIONS: Implement these prompts according to the conflict resolution above. Winners take precedence. Additive prompts should all be included.\n")

	b.WriteString(`
Design spec format:
{
  "palette": { "bg": "#hex", "fg": "#hex", "accent": ["#hex"] },
  "layout": { "kind": "landing" | "gallery" | "dashboard", "sections": [{ "id": "...", "type": "...", "props": {} }] },
  "components": [{ "path": "string", "type": "string", "props": {} }],
  "tensions": [{ "participantId": "string", "weight": 0.5, "reason": "string" }],
  "themeVars": {}
}

CRITICAL:
- If a current design exists, MERGE new ideas with existing components.
- The "components" array must include ALL components (existing + new).
- Assign tension weights in [0,1] showing whose ideas dominated.
- Only remove components explicitly contradicted by a winning prompt.

Return ONLY valid JSON, no markdown.
`)
	return b.String()
}

// builderPrompt asks the service to turn a design spec into a patch against
// the room's vanilla HTML/CSS/JS artifact.
func builderPrompt(spec domain.SpecContent, current string) string {
	var b strings.Builder
	b.WriteString("You are a code builder. Convert a design spec into file-patch JSON for a vanilla HTML/CSS/JS app.\n")

	if current != "" {
		b.WriteString("\nCURRENT HTML STATE:\n")
		b.WriteString(current)
		b.WriteString("\n\nYour task: PRESERVE and ENHANCE the existing HTML. Add new features from the spec without removing existing ones unless explicitly contradicted.\n")
	}

	if len(spec.Components) > 0 {
		b.WriteString("\nCOMPONENTS YOU MUST INCLUDE:\n")
		for i, c := range spec.Components {
			fmt.Fprintf(&b, "%d. %s (path: %s, props: %s)\n", i+1, c.Type, c.Path, marshalIndent(c.Props))
		}
		b.WriteString("Every component listed above MUST appear in your generated HTML. Do not skip any.\n")
	}
	if len(spec.Tensions) > 0 {
		b.WriteString("\nTENSIONS (use these for visual prominence; higher weight = more prominent):\n")
		for _, t := range spec.Tensions {
			fmt.Fprintf(&b, "- Participant %s: weight %.2f (%s)\n", t.ParticipantID, t.Weight, t.Reason)
		}
	}

	b.WriteString(`
Patch format:
{
  "ops": [
    { "op": "set_file", "path": "string", "content": "string" },
    { "op": "delete_file", "path": "string" },
    { "op": "mkdir", "path": "string" }
  ]
}

REQUIREMENTS:
1. Generate vanilla HTML/CSS/JavaScript - NO frameworks.
2. ALWAYS create or update "index.html" as the main entry point.
3. Include ALL components from the design spec.
4. If current HTML exists, preserve existing features unless explicitly contradicted.
5. Use the palette colors in your styles and tension weights for prominence.
6. Return ONLY valid JSON, no markdown or code fences.

Design spec:
`)
	b.WriteString(marshalIndent(spec))
	return b.String()
}
