// Package reasoning – answer schema.
//
// The reasoning service is asked to emit a single JSON object at the end of
// its answer. This file extracts that object, decodes it through tolerant
// wire structures (the service numbers prompts 1..n and sometimes emits
// indices as strings or hyphenated enum values), and maps everything onto
// the strict domain types.
package reasoning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// extractJSON returns the outermost {...} block of an answer, which may be
// surrounded by prose or markdown fences.
func extractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in answer", ErrMalformedResponse)
	}
	return s[start : end+1], nil
}

// promptIndex is a 1-based prompt reference that the service may emit as a
// JSON number or a numeric string.
type promptIndex int

func (p *promptIndex) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = promptIndex(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("prompt index %s is neither number nor string", string(data))
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("prompt index %q is not numeric", s)
	}
	*p = promptIndex(n)
	return nil
}

// resolve maps the 1-based index to the ID of the corresponding event.
// Out-of-range indices degrade to their decimal string so membership checks
// stay internally consistent.
func (p promptIndex) resolve(events []domain.PromptEvent) string {
	i := int(p) - 1
	if i < 0 || i >= len(events) {
		return strconv.Itoa(int(p))
	}
	return events[i].ID
}

type wireGroup struct {
	PromptIDs   []promptIndex `json:"promptIds"`
	Explanation string        `json:"explanation"`
}

type wireConflict struct {
	PromptIDs  []promptIndex `json:"promptIds"`
	Type       string        `json:"type"`
	Winner     promptIndex   `json:"winner"`
	Reasoning  string        `json:"reasoning"`
	Confidence float64       `json:"confidence"`
}

type wireAnalysis struct {
	Additive           []wireGroup    `json:"additive"`
	Conflicts          []wireConflict `json:"conflicts"`
	PrioritizedPrompts []promptIndex  `json:"prioritizedPrompts"`
}

// normalizeConflictType folds the service's hyphenated spellings onto the
// domain constants.
func normalizeConflictType(t string) string {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "-", "_") {
	case domain.ConflictContradictory:
		return domain.ConflictContradictory
	default:
		return domain.ConflictMutuallyExclusive
	}
}

// decodeAnalysis parses a raw analyzer answer into an AnalysisResult with
// indices resolved against events. An empty prioritized list falls back to
// all event IDs in chronological order; structural violations surface as
// ErrMalformedResponse.
func decodeAnalysis(answer string, events []domain.PromptEvent) (domain.AnalysisResult, error) {
	var out domain.AnalysisResult

	raw, err := extractJSON(answer)
	if err != nil {
		return out, err
	}
	var w wireAnalysis
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out.Additive = make([]domain.AdditiveGroup, 0, len(w.Additive))
	for _, g := range w.Additive {
		out.Additive = append(out.Additive, domain.AdditiveGroup{
			PromptIDs:   resolveAll(g.PromptIDs, events),
			Explanation: g.Explanation,
		})
	}
	out.Conflicts = make([]domain.Conflict, 0, len(w.Conflicts))
	for _, c := range w.Conflicts {
		out.Conflicts = append(out.Conflicts, domain.Conflict{
			PromptIDs:  resolveAll(c.PromptIDs, events),
			Type:       normalizeConflictType(c.Type),
			Winner:     c.Winner.resolve(events),
			Reasoning:  c.Reasoning,
			Confidence: c.Confidence,
		})
	}
	out.PrioritizedPrompts = resolveAll(w.PrioritizedPrompts, events)

	// The service is instructed never to leave the priority list empty, but
	// when it does anyway, chronological order is the documented fallback.
	if len(out.PrioritizedPrompts) == 0 {
		for _, e := range events {
			out.PrioritizedPrompts = append(out.PrioritizedPrompts, e.ID)
		}
	}

	if err := out.Validate(); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

func resolveAll(idxs []promptIndex, events []domain.PromptEvent) []string {
	ids := make([]string, 0, len(idxs))
	for _, i := range idxs {
		ids = append(ids, i.resolve(events))
	}
	return ids
}

// decodeSpec parses a raw planner answer into a SpecContent.
func decodeSpec(answer string) (*domain.SpecContent, error) {
	raw, err := extractJSON(answer)
	if err != nil {
		return nil, err
	}
	var spec domain.SpecContent
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &spec, nil
}

// wirePatchOp tolerates the camelCase op spellings the service tends to use
// alongside the canonical snake_case tags.
type wirePatchOp struct {
	Op      string `json:"op"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

type wirePatch struct {
	Ops []wirePatchOp `json:"ops"`
}

func normalizeOp(op string) (string, bool) {
	switch op {
	case domain.OpSetFile, "setFile":
		return domain.OpSetFile, true
	case domain.OpDeleteFile, "deleteFile":
		return domain.OpDeleteFile, true
	case domain.OpMkdir:
		return domain.OpMkdir, true
	default:
		return "", false
	}
}

// decodePatch parses a raw builder answer into a PatchSet. Unknown op tags
// are a malformed response, not something to skip.
func decodePatch(answer string) (*domain.PatchSet, error) {
	raw, err := extractJSON(answer)
	if err != nil {
		return nil, err
	}
	var w wirePatch
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	ps := &domain.PatchSet{Ops: make([]domain.PatchOp, 0, len(w.Ops))}
	for i, op := range w.Ops {
		tag, ok := normalizeOp(op.Op)
		if !ok {
			return nil, fmt.Errorf("%w: ops[%d]: %v: %q", ErrMalformedResponse, i, domain.ErrUnknownOp, op.Op)
		}
		if op.Path == "" {
			return nil, fmt.Errorf("%w: ops[%d]: missing path", ErrMalformedResponse, i)
		}
		ps.Ops = append(ps.Ops, domain.PatchOp{Op: tag, Path: op.Path, Content: op.Content})
	}
	return ps, nil
}
