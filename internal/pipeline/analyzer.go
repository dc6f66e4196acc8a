// Package pipeline – conflict analyzer stage.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/flight"
	"github.com/vibedeux/go-room-backend/internal/reasoning"
	"github.com/vibedeux/go-room-backend/internal/repo"
)

// Analyzer runs conflict analysis over a room's unanalyzed prompt events.
// Runs are single-flighted per room: a trigger arriving while an analysis
// is in flight joins it and receives the same analysis ID.
type Analyzer struct {
	DB        *gorm.DB
	Reasoning reasoning.Client

	// Lookback bounds the first analysis of a room, which has no previous
	// analysis timestamp to anchor on.
	Lookback time.Duration
	// MaxEvents caps one run's input; older events come first, anything
	// beyond the cap waits for the next cycle.
	MaxEvents int

	Log zerolog.Logger

	flights flight.Group[string]
}

// NewAnalyzer constructs an Analyzer with the given window settings.
func NewAnalyzer(db *gorm.DB, rc reasoning.Client, lookback time.Duration, maxEvents int, log zerolog.Logger) *Analyzer {
	if lookback <= 0 {
		lookback = 15 * time.Second
	}
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &Analyzer{DB: db, Reasoning: rc, Lookback: lookback, MaxEvents: maxEvents, Log: log}
}

// Run analyzes the room's events newer than the last analysis and persists
// the result. It returns the new analysis ID, or "" when there was nothing
// to analyze.
func (a *Analyzer) Run(ctx context.Context, roomID string) (string, error) {
	id, shared, err := a.flights.Do(roomID, func() (string, error) {
		return a.run(ctx, roomID)
	})
	if shared {
		a.Log.Debug().Str("room_id", roomID).Msg("analyzer run joined in-flight execution")
	}
	return id, err
}

func (a *Analyzer) run(ctx context.Context, roomID string) (string, error) {
	tr := otel.Tracer("pipeline/Analyzer")
	ctx, span := tr.Start(ctx, "Run")
	span.SetAttributes(attribute.String("room.id", roomID))
	defer span.End()

	// Anchor on the previous analysis so events are analyzed exactly once;
	// a fresh room looks back a fixed window instead.
	cutoff := time.Now().Add(-a.Lookback)
	last, err := repo.LatestAnalysis(ctx, a.DB, roomID)
	if err != nil {
		return "", err
	}
	if last != nil {
		cutoff = last.CreatedAt
	}

	events, err := repo.ListEventsAfter(ctx, a.DB, roomID, cutoff, a.MaxEvents)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		a.Log.Debug().Str("room_id", roomID).Time("cutoff", cutoff).Msg("analyzer: no new events")
		return "", nil
	}
	a.Log.Info().
		Str("room_id", roomID).
		Int("events", len(events)).
		Time("cutoff", cutoff).
		Msg("analyzer: starting run")

	currentSpec, err := a.latestSpecContent(ctx, roomID)
	if err != nil {
		return "", err
	}

	outcome, err := a.Reasoning.Analyze(ctx, events, currentSpec)
	if err != nil {
		return "", err
	}

	eventIDs := make([]string, len(events))
	for i, e := range events {
		eventIDs[i] = e.ID
	}
	analysis, err := repo.CreateAnalysis(ctx, a.DB, roomID, eventIDs, outcome.Result, outcome.Thinking)
	if err != nil {
		return "", err
	}
	a.Log.Info().
		Str("room_id", roomID).
		Str("analysis_id", analysis.ID).
		Int("conflicts", len(outcome.Result.Conflicts)).
		Int("additive_groups", len(outcome.Result.Additive)).
		Msg("analyzer: run complete")
	return analysis.ID, nil
}

// latestSpecContent returns the room's current spec content, or nil when
// no spec exists yet.
func (a *Analyzer) latestSpecContent(ctx context.Context, roomID string) (*domain.SpecContent, error) {
	spec, err := repo.LatestSpec(ctx, a.DB, roomID)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, nil
	}
	return &spec.Spec, nil
}
