// Package pipeline – platform cycle variant.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/bus"
	"github.com/vibedeux/go-room-backend/internal/commands"
	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/platform"
	"github.com/vibedeux/go-room-backend/internal/repo"
)

// PlatformCycle is the alternative build path: instead of running the local
// builder, recent prompts are condensed into one synthesized command prompt
// and applied to the room's project on the hosted code-generation platform.
// The platform owns file generation and deployment; this side records the
// resulting version and preview URL.
type PlatformCycle struct {
	DB       *gorm.DB
	Platform platform.Client
	Bus      bus.Bus
	Log      zerolog.Logger

	// Window bounds how far back prompt events count as live commands.
	Window time.Duration
	// MinSupport is the survival threshold handed to the synthesizer.
	MinSupport float64
}

// NewPlatformCycle constructs a PlatformCycle.
func NewPlatformCycle(db *gorm.DB, pc platform.Client, b bus.Bus, window time.Duration, minSupport float64, log zerolog.Logger) *PlatformCycle {
	if b == nil {
		b = bus.Nop{}
	}
	if window <= 0 {
		window = 5 * time.Second
	}
	return &PlatformCycle{DB: db, Platform: pc, Bus: b, Window: window, MinSupport: minSupport, Log: log}
}

// commandFetchCap bounds one window's worth of command events.
const commandFetchCap = 200

// Run executes one platform cycle. Windows with no surviving commands end
// silently.
func (p *PlatformCycle) Run(ctx context.Context, roomID string) error {
	tr := otel.Tracer("pipeline/PlatformCycle")
	ctx, span := tr.Start(ctx, "Run")
	span.SetAttributes(attribute.String("room.id", roomID))
	defer span.End()

	events, err := repo.ListEventsAfter(ctx, p.DB, roomID, time.Now().Add(-p.Window), commandFetchCap)
	if err != nil {
		return err
	}
	var raw []string
	for _, e := range events {
		if e.Kind == domain.KindText && e.Text != "" {
			raw = append(raw, e.Text)
		}
	}

	synthesized := commands.Synthesize(raw, p.MinSupport)
	if len(synthesized.TopCommands) == 0 {
		p.Log.Debug().Str("room_id", roomID).Int("raw", len(raw)).Msg("platform cycle: no commands to process")
		return nil
	}

	p.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseBuilding, Status: bus.StatusStarted, Percent: 20,
		Message: fmt.Sprintf("sending %d command(s) to the platform", len(synthesized.TopCommands)),
	})

	project, err := repo.GetPlatformProject(ctx, p.DB, roomID)
	if err != nil {
		return p.fail(ctx, roomID, err)
	}
	if project == nil {
		created, err := p.Platform.CreateProject(ctx, roomID)
		if err != nil {
			return p.fail(ctx, roomID, err)
		}
		project = &domain.PlatformProject{
			RoomID:    roomID,
			ProjectID: created.ProjectID,
			ChatID:    created.ChatID,
		}
		if err := repo.SavePlatformProject(ctx, p.DB, project); err != nil {
			return p.fail(ctx, roomID, err)
		}
	}

	p.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseBuilding, Status: bus.StatusProgress, Percent: 65,
		Message: "platform is updating the project",
	})

	applied, err := p.Platform.ApplyPrompt(ctx, project.ProjectID, platformPrompt(roomID, synthesized), platform.ApplyPromptOptions{
		ChatID:  project.ChatID,
		Context: roomID,
	})
	if err != nil {
		return p.fail(ctx, roomID, err)
	}

	project.ChatID = applied.ChatID
	project.VersionID = applied.VersionID
	project.PreviewURL = applied.PreviewURL
	if err := repo.SavePlatformProject(ctx, p.DB, project); err != nil {
		return p.fail(ctx, roomID, err)
	}

	percent := 90
	if applied.PreviewURL != "" {
		percent = 100
	}
	p.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseBuilding, Status: bus.StatusDone, Percent: percent,
		Message: "platform preview refreshed",
	})
	p.Log.Info().
		Str("room_id", roomID).
		Str("project_id", project.ProjectID).
		Str("version_id", applied.VersionID).
		Int("commands", len(synthesized.TopCommands)).
		Msg("platform cycle: complete")
	return nil
}

func (p *PlatformCycle) fail(ctx context.Context, roomID string, err error) error {
	p.Log.Error().Err(err).Str("room_id", roomID).Msg("platform cycle failed")
	p.publish(ctx, roomID, bus.StatusUpdate{
		Phase: bus.PhaseBuilding, Status: bus.StatusFailed,
		Message: err.Error(),
	})
	return err
}

func (p *PlatformCycle) publish(ctx context.Context, roomID string, u bus.StatusUpdate) {
	if err := p.Bus.Publish(ctx, roomID, u); err != nil {
		p.Log.Warn().Err(err).Str("room_id", roomID).Msg("platform cycle: status publish failed")
	}
}

// platformPrompt renders the synthesized commands into the single prompt
// applied to the platform project.
func platformPrompt(roomID string, s commands.Synthesized) string {
	var list strings.Builder
	for i, cmd := range s.TopCommands {
		fmt.Fprintf(&list, "%d. %s (%d votes)\n", i+1, cmd.Text, cmd.Count)
	}
	return fmt.Sprintf(`This is a collaborative project for room %s.
Summary: %s
Top commands:
%s
Please improve the existing app by implementing these requests. Keep every feature additive, preserve prior functionality, and treat the design as a live sandbox preview that should stay responsive.`, roomID, s.Summary, list.String())
}
