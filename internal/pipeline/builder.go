// Package pipeline – builder stage.
package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/flight"
	"github.com/vibedeux/go-room-backend/internal/reasoning"
	"github.com/vibedeux/go-room-backend/internal/repo"
)

// primaryArtifact is the room's entry-point file, used as builder context
// and as the target of the completeness check.
const primaryArtifact = "index.html"

// Builder converts a design spec into a file patch and applies it to the
// room's file set. Builds are idempotent by spec content: at most one patch
// exists per (room, spec hash), and runs are single-flighted per room and
// spec hash so concurrent builds of the same content in the same room
// collapse into one. Two rooms can produce byte-identical spec content, so
// the room must be part of the key or one room's build would hand back the
// other room's patch.
type Builder struct {
	DB        *gorm.DB
	Reasoning reasoning.Client
	Log       zerolog.Logger

	flights flight.Group[string]
}

// NewBuilder constructs a Builder.
func NewBuilder(db *gorm.DB, rc reasoning.Client, log zerolog.Logger) *Builder {
	return &Builder{DB: db, Reasoning: rc, Log: log}
}

// Run builds the given spec and returns the patch ID. A spec whose content
// hash already has a patch returns the stored patch without calling the
// reasoning service again.
func (b *Builder) Run(ctx context.Context, roomID, specID string) (string, error) {
	spec, err := repo.GetSpec(ctx, b.DB, specID)
	if err != nil {
		return "", err
	}
	id, shared, err := b.flights.Do(roomID+":"+spec.SpecHash, func() (string, error) {
		return b.run(ctx, roomID, spec)
	})
	if shared {
		b.Log.Debug().Str("room_id", roomID).Str("spec_hash", spec.SpecHash).Msg("builder run joined in-flight execution")
	}
	return id, err
}

func (b *Builder) run(ctx context.Context, roomID string, spec *domain.DesignSpec) (string, error) {
	tr := otel.Tracer("pipeline/Builder")
	ctx, span := tr.Start(ctx, "Run")
	span.SetAttributes(
		attribute.String("room.id", roomID),
		attribute.String("spec.hash", spec.SpecHash),
	)
	defer span.End()

	if existing, err := repo.FindPatchBySpecHash(ctx, b.DB, roomID, spec.SpecHash); err != nil {
		return "", err
	} else if existing != nil {
		b.Log.Info().
			Str("room_id", roomID).
			Str("patch_id", existing.ID).
			Str("spec_hash", spec.SpecHash).
			Msg("builder: patch already built for spec content")
		return existing.ID, nil
	}

	current := ""
	if f, err := repo.GetFile(ctx, b.DB, roomID, primaryArtifact); err != nil {
		return "", err
	} else if f != nil {
		current = f.Content
	}

	set, err := b.Reasoning.Build(ctx, spec.Spec, current)
	if err != nil {
		return "", err
	}
	if err := set.Validate(); err != nil {
		return "", err
	}
	set.BaseSpecHash = spec.SpecHash

	b.checkCompleteness(roomID, spec.Spec, *set)

	patch, err := repo.CreatePatch(ctx, b.DB, roomID, spec.SpecHash, *set)
	if err != nil {
		return "", err
	}
	if err := ApplyPatch(ctx, b.DB, roomID, *set); err != nil {
		return "", err
	}
	b.Log.Info().
		Str("room_id", roomID).
		Str("patch_id", patch.ID).
		Int("ops", len(set.Ops)).
		Msg("builder: patch persisted and applied")
	return patch.ID, nil
}

// checkCompleteness verifies that every spec component shows up in the
// generated entry point, by case-insensitive substring on the component
// type or the last segment of its path. Misses are logged, never blocking:
// the heuristic is too weak to reject work over.
func (b *Builder) checkCompleteness(roomID string, spec domain.SpecContent, set domain.PatchSet) {
	if len(spec.Components) == 0 {
		return
	}
	var html string
	for _, op := range set.Ops {
		if op.Op == domain.OpSetFile && op.Path == primaryArtifact {
			html = strings.ToLower(op.Content)
			break
		}
	}
	if html == "" {
		return
	}

	var missing []string
	for _, c := range spec.Components {
		needle := strings.ToLower(c.Type)
		alt := strings.ToLower(lastSegment(c.Path))
		if (needle != "" && strings.Contains(html, needle)) || (alt != "" && strings.Contains(html, alt)) {
			continue
		}
		missing = append(missing, c.Type)
	}
	if len(missing) > 0 {
		b.Log.Warn().
			Str("room_id", roomID).
			Strs("missing_components", missing).
			Msg("builder: generated entry point lacks evidence of some components")
	}
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
