// Package pipeline – cycle runner.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vibedeux/go-room-backend/internal/bus"
)

// Runner drives one full generation cycle for a room: analyze, plan,
// build. The scheduler invokes it when a batch window closes. Progress is
// published on the bus; publish failures are logged and never fail the
// cycle.
type Runner struct {
	Planner *Planner
	Builder *Builder
	Bus     bus.Bus
	Log     zerolog.Logger
}

// NewRunner constructs a cycle Runner.
func NewRunner(planner *Planner, builder *Builder, b bus.Bus, log zerolog.Logger) *Runner {
	if b == nil {
		b = bus.Nop{}
	}
	return &Runner{Planner: planner, Builder: builder, Bus: b, Log: log}
}

// Run executes one cycle. A cycle with no new events ends silently after
// the analysis stage; a stage error aborts the cycle (the events remain
// unanalyzed and the next window retries them).
func (r *Runner) Run(ctx context.Context, roomID string) error {
	tr := otel.Tracer("pipeline/Runner")
	ctx, span := tr.Start(ctx, "Run")
	span.SetAttributes(attribute.String("room.id", roomID))
	defer span.End()

	r.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseAnalyzing, Status: bus.StatusStarted, Percent: 10,
		Message: "analyzing new prompts",
	})

	specID, err := r.Planner.Run(ctx, roomID)
	if err != nil {
		r.Log.Error().Err(err).Str("room_id", roomID).Msg("cycle: planning failed")
		r.publish(ctx, roomID, bus.StatusUpdate{
			Phase: bus.PhasePlanning, Status: bus.StatusFailed,
			Message: err.Error(),
		})
		return err
	}
	if specID == "" {
		r.publish(ctx, roomID, bus.StatusUpdate{
			Phase: bus.PhaseAnalyzing, Status: bus.StatusSkipped, Percent: 100,
			Message: "no new prompts",
		})
		return nil
	}

	r.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseBuilding, Status: bus.StatusStarted, Percent: 60,
		Message: "building files from design spec",
	})

	patchID, err := r.Builder.Run(ctx, roomID, specID)
	if err != nil {
		r.Log.Error().Err(err).Str("room_id", roomID).Str("spec_id", specID).Msg("cycle: build failed")
		r.publish(ctx, roomID, bus.StatusUpdate{
			Phase: bus.PhaseBuilding, Status: bus.StatusFailed,
			Message: err.Error(),
		})
		return err
	}

	r.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseBuilding, Status: bus.StatusDone, Percent: 100,
		Message: "files updated",
	})
	r.Log.Info().
		Str("room_id", roomID).
		Str("spec_id", specID).
		Str("patch_id", patchID).
		Msg("cycle: complete")
	return nil
}

func (r *Runner) publish(ctx context.Context, roomID string, u bus.StatusUpdate) {
	if err := r.Bus.Publish(ctx, roomID, u); err != nil {
		r.Log.Warn().Err(err).Str("room_id", roomID).Str("phase", u.Phase).Msg("cycle: status publish failed")
	}
}
