// Package domain – typed pipeline value objects.
//
// This file defines the JSON structures exchanged with the reasoning
// service and stored inside PromptAnalysis, DesignSpec, and FilePatch rows.
// They are deliberately strict: the reasoning-service boundary validates
// each structure on the way in (see Validate methods), and patch operation
// tags are a closed set whose unknown members fail decoding instead of
// being skipped deep inside the pipeline.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Conflict types recognized by the analyzer.
const (
	ConflictMutuallyExclusive = "mutually_exclusive"
	ConflictContradictory     = "contradictory"
)

// ErrUnknownOp is returned when a patch contains an operation tag outside
// the documented set. Malformed ops are a defect to surface, not skip.
var ErrUnknownOp = errors.New("unknown patch op")

// Conflict records a set of incompatible prompts and the designated winner.
// Invariant: Winner is a member of PromptIDs.
type Conflict struct {
	PromptIDs  []string `json:"promptIds"`
	Type       string   `json:"type"`
	Winner     string   `json:"winner"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Validate checks the winner-membership and confidence-range invariants.
func (c Conflict) Validate() error {
	if len(c.PromptIDs) == 0 {
		return errors.New("conflict has no prompt ids")
	}
	found := false
	for _, id := range c.PromptIDs {
		if id == c.Winner {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("conflict winner %q not among prompt ids", c.Winner)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("conflict confidence %v outside [0,1]", c.Confidence)
	}
	return nil
}

// AdditiveGroup records prompts judged compatible and meant to be
// implemented together. Invariant: at least two members.
type AdditiveGroup struct {
	PromptIDs   []string `json:"promptIds"`
	Explanation string   `json:"explanation,omitempty"`
}

// Validate enforces the two-member minimum.
func (g AdditiveGroup) Validate() error {
	if len(g.PromptIDs) < 2 {
		return fmt.Errorf("additive group needs >= 2 prompts, got %d", len(g.PromptIDs))
	}
	return nil
}

// AnalysisResult is the typed classification stored on a PromptAnalysis.
// PrioritizedPrompts holds event IDs in priority order (highest first).
type AnalysisResult struct {
	Additive           []AdditiveGroup `json:"additive"`
	Conflicts          []Conflict      `json:"conflicts"`
	PrioritizedPrompts []string        `json:"prioritizedPrompts"`
}

// Validate checks every nested group and conflict.
func (a AnalysisResult) Validate() error {
	for i, g := range a.Additive {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("additive[%d]: %w", i, err)
		}
	}
	for i, c := range a.Conflicts {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("conflicts[%d]: %w", i, err)
		}
	}
	return nil
}

// Palette is the color scheme portion of a design spec.
type Palette struct {
	BG     string   `json:"bg"`
	FG     string   `json:"fg"`
	Accent []string `json:"accent,omitempty"`
}

// Section is one region of the page layout.
type Section struct {
	ID    string            `json:"id"`
	Type  string            `json:"type"`
	Props map[string]string `json:"props,omitempty"`
}

// Layout describes the page structure of a design spec.
type Layout struct {
	Kind     string    `json:"kind"` // landing | gallery | dashboard
	Sections []Section `json:"sections,omitempty"`
}

// Component is one buildable unit declared by the planner. Path is where
// the builder is expected to place it; Type names what it is.
type Component struct {
	Path  string            `json:"path"`
	Type  string            `json:"type"`
	Props map[string]string `json:"props,omitempty"`
}

// Tension records how strongly one participant's prompts influenced the
// merged spec. Weight is in [0,1].
type Tension struct {
	ParticipantID string  `json:"participantId"`
	Weight        float64 `json:"weight"`
	Reason        string  `json:"reason,omitempty"`
}

// SpecContent is the body of a DesignSpec: the planner's cumulative merge
// of every prioritized prompt so far. Components are additive across
// planner runs unless explicitly contradicted by a higher-priority prompt.
type SpecContent struct {
	Palette    Palette           `json:"palette"`
	Layout     Layout            `json:"layout"`
	Components []Component       `json:"components"`
	Tensions   []Tension         `json:"tensions,omitempty"`
	ThemeVars  map[string]string `json:"themeVars,omitempty"`
}

// Validate checks tension weight ranges and component shape.
func (s SpecContent) Validate() error {
	for i, c := range s.Components {
		if c.Path == "" && c.Type == "" {
			return fmt.Errorf("components[%d]: missing both path and type", i)
		}
	}
	for i, t := range s.Tensions {
		if t.Weight < 0 || t.Weight > 1 {
			return fmt.Errorf("tensions[%d]: weight %v outside [0,1]", i, t.Weight)
		}
	}
	return nil
}

// Patch operation tags. The set is closed: anything else fails decoding.
const (
	OpSetFile    = "set_file"
	OpDeleteFile = "delete_file"
	OpMkdir      = "mkdir"
)

// PatchOp is one file operation inside a PatchSet, discriminated by Op.
// Content is meaningful only for OpSetFile.
type PatchOp struct {
	Op      string `json:"op"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// UnmarshalJSON decodes a patch op and rejects unknown operation tags at
// the boundary so the application engine can stay total.
func (p *PatchOp) UnmarshalJSON(data []byte) error {
	type raw PatchOp
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	switch r.Op {
	case OpSetFile, OpDeleteFile, OpMkdir:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, r.Op)
	}
	if r.Path == "" {
		return fmt.Errorf("patch op %q missing path", r.Op)
	}
	*p = PatchOp(r)
	return nil
}

// PatchSet is the ordered list of operations the builder produced for one
// spec. Application order is document order.
type PatchSet struct {
	BaseSpecHash string    `json:"baseSpecHash,omitempty"`
	Ops          []PatchOp `json:"ops"`
}

// Validate re-checks every op tag (covers values constructed in code
// rather than decoded from JSON).
func (ps PatchSet) Validate() error {
	for i, op := range ps.Ops {
		switch op.Op {
		case OpSetFile, OpDeleteFile, OpMkdir:
		default:
			return fmt.Errorf("ops[%d]: %w: %q", i, ErrUnknownOp, op.Op)
		}
		if op.Path == "" {
			return fmt.Errorf("ops[%d]: missing path", i)
		}
	}
	return nil
}
