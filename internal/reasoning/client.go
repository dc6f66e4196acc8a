// Package reasoning is the boundary to the external reasoning service that
// powers the three synthesis stages: conflict analysis, design planning, and
// code building. The package owns the prompt construction, the wire schema of
// the service's JSON answers, and the mapping from the answer's 1-based
// prompt indices to real event IDs.
//
// Callers depend on the Client interface; HTTPClient is the production
// implementation. Responses that cannot be decoded into the documented
// structures are reported as ErrMalformedResponse so the pipeline can fail
// the stage instead of persisting garbage.
package reasoning

import (
	"context"
	"errors"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// ErrMalformedResponse indicates the reasoning service returned output that
// could not be decoded or failed structural validation. The stage that
// received it must abort; no retries are attempted at this layer.
var ErrMalformedResponse = errors.New("malformed reasoning response")

// AnalysisOutcome is the result of one conflict-analyzer call: the typed
// classification plus the model's visible reasoning, kept for the analysis
// audit trail.
type AnalysisOutcome struct {
	Result   domain.AnalysisResult
	Thinking string
	Answer   string
}

// PlanRequest carries everything the planner stage hands to the service:
// the events to plan for, the analyzer's prioritization directive, and the
// current spec to merge into (nil on the first run).
type PlanRequest struct {
	Events      []domain.PromptEvent
	Analysis    domain.AnalysisResult
	CurrentSpec *domain.SpecContent
}

// Client is the contract the pipeline stages program against.
//
// All methods honor ctx cancellation. Analyze maps the service's prompt
// indices back to the IDs of the supplied events and guarantees a non-empty
// prioritized list whenever events is non-empty.
type Client interface {
	// Analyze classifies the events as additive or conflicting and returns
	// a priority ordering over them.
	Analyze(ctx context.Context, events []domain.PromptEvent, currentSpec *domain.SpecContent) (*AnalysisOutcome, error)

	// Plan synthesizes a design spec that merges the prioritized prompts
	// into the current spec.
	Plan(ctx context.Context, req PlanRequest) (*domain.SpecContent, error)

	// Build converts a design spec into a patch set against the room's
	// current artifact (the existing index.html, empty on first build).
	Build(ctx context.Context, spec domain.SpecContent, current string) (*domain.PatchSet, error)
}
