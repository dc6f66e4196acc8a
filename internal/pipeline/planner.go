// Package pipeline – planner stage.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/flight"
	"github.com/vibedeux/go-room-backend/internal/reasoning"
	"github.com/vibedeux/go-room-backend/internal/repo"
)

// Planner turns a conflict analysis into a design spec. Each run first
// drives the analyzer, then plans over exactly the events that analysis
// covered. Runs are single-flighted per room.
type Planner struct {
	DB        *gorm.DB
	Reasoning reasoning.Client
	Analyzer  *Analyzer
	Log       zerolog.Logger

	flights flight.Group[string]
}

// NewPlanner constructs a Planner on top of an Analyzer.
func NewPlanner(db *gorm.DB, rc reasoning.Client, analyzer *Analyzer, log zerolog.Logger) *Planner {
	return &Planner{DB: db, Reasoning: rc, Analyzer: analyzer, Log: log}
}

// Run produces (or reuses) a design spec for the room's latest batch of
// events. It returns the spec ID, or "" when no new events existed.
func (p *Planner) Run(ctx context.Context, roomID string) (string, error) {
	id, shared, err := p.flights.Do(roomID, func() (string, error) {
		return p.run(ctx, roomID)
	})
	if shared {
		p.Log.Debug().Str("room_id", roomID).Msg("planner run joined in-flight execution")
	}
	return id, err
}

func (p *Planner) run(ctx context.Context, roomID string) (string, error) {
	tr := otel.Tracer("pipeline/Planner")
	ctx, span := tr.Start(ctx, "Run")
	span.SetAttributes(attribute.String("room.id", roomID))
	defer span.End()

	analysisID, err := p.Analyzer.Run(ctx, roomID)
	if err != nil {
		return "", err
	}
	if analysisID == "" {
		return "", nil
	}

	analysis, err := repo.GetAnalysis(ctx, p.DB, analysisID)
	if err != nil {
		return "", err
	}

	// Re-fetch by ID so planning covers exactly the analyzed events, even
	// if newer events have landed since the analyzer's query.
	events, err := repo.ListEventsByIDs(ctx, p.DB, roomID, analysis.PromptEventIDs)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		p.Log.Warn().Str("room_id", roomID).Str("analysis_id", analysisID).Msg("planner: analyzed events no longer present")
		return "", nil
	}

	ordered := orderByPriority(events, analysis.Analysis.PrioritizedPrompts)

	currentSpec, err := p.Analyzer.latestSpecContent(ctx, roomID)
	if err != nil {
		return "", err
	}

	content, err := p.Reasoning.Plan(ctx, reasoning.PlanRequest{
		Events:      ordered,
		Analysis:    analysis.Analysis,
		CurrentSpec: currentSpec,
	})
	if err != nil {
		return "", err
	}

	hash := SpecHash(*content)
	if existing, err := repo.FindSpecByHash(ctx, p.DB, roomID, hash); err != nil {
		return "", err
	} else if existing != nil {
		p.Log.Info().
			Str("room_id", roomID).
			Str("spec_id", existing.ID).
			Str("spec_hash", hash).
			Msg("planner: spec content unchanged, reusing")
		return existing.ID, nil
	}

	spec, err := repo.CreateSpec(ctx, p.DB, roomID, analysisID, hash, *content)
	if err != nil {
		// A concurrent planner for another batch may have inserted the same
		// content between the lookup and the insert; the unique index makes
		// the race observable, and the stored row is the answer either way.
		if errors.Is(err, repo.ErrDuplicate) {
			if existing, ferr := repo.FindSpecByHash(ctx, p.DB, roomID, hash); ferr == nil && existing != nil {
				return existing.ID, nil
			}
		}
		return "", err
	}
	p.Log.Info().
		Str("room_id", roomID).
		Str("spec_id", spec.ID).
		Str("spec_hash", hash).
		Int("components", len(content.Components)).
		Msg("planner: new spec persisted")
	return spec.ID, nil
}

// orderByPriority reorders events to match the prioritized ID list,
// dropping IDs that resolve to no event. When nothing resolves, the
// original chronological order is used.
func orderByPriority(events []domain.PromptEvent, priority []string) []domain.PromptEvent {
	byID := make(map[string]domain.PromptEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	ordered := make([]domain.PromptEvent, 0, len(events))
	for _, id := range priority {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	if len(ordered) == 0 {
		return events
	}
	return ordered
}
