// Package services – RoomService
//
// This file implements the RoomService, which manages the lifecycle of rooms
// and their participants. It validates and normalizes titles, assigns display
// colors at join time, and coordinates repository operations for creating,
// joining, and reading rooms. Title handling is intentionally minimal here
// because automatic title generation is performed in PromptService on the
// first text prompt.
//
// Service-level errors (e.g., ErrRoomNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// participantColors is the fixed palette cycled through as participants join,
// so every member of a room gets a distinct, stable display color.
var participantColors = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#f9ca24", "#6c5ce7",
}

// RoomService provides room-level operations such as creating rooms,
// joining them, and reading room state together with its participants.
type RoomService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// NameMaxLen caps participant display names by rune length.
	NameMaxLen int
}

// NewRoomService constructs a RoomService with sane defaults.
func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{
		DB:          db,
		TitleMaxLen: 60,
		NameMaxLen:  64,
	}
}

// Create inserts a new room with the provided title.
// Titles are normalized, trimmed, clipped, and a default fallback is applied.
func (s *RoomService) Create(ctx context.Context, title string) (*domain.Room, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	title = normalizeTitle(title)
	if title == "" {
		title = "New room"
	}
	return repo.CreateRoom(ctx, s.DB, s.clip(title, s.TitleMaxLen, 60))
}

// Join adds a participant to an active room. Display names are normalized and
// clipped; a color is assigned round-robin from the palette based on how many
// participants joined before.
func (s *RoomService) Join(ctx context.Context, roomID, displayName string) (*domain.Participant, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Join",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	displayName = normalizeTitle(displayName)
	if displayName == "" {
		return nil, ErrEmptyName
	}
	displayName = s.clip(displayName, s.NameMaxLen, 64)

	n, err := repo.CountParticipants(ctx, s.DB, room.ID)
	if err != nil {
		return nil, err
	}
	color := participantColors[int(n)%len(participantColors)]

	return repo.AddParticipant(ctx, s.DB, room.ID, displayName, color)
}

// Get returns a room together with its participants.
func (s *RoomService) Get(ctx context.Context, roomID string) (*domain.Room, []domain.Participant, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	room, err := repo.GetRoom(ctx, s.DB, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}
	members, err := repo.ListParticipants(ctx, s.DB, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, members, nil
}

// Files returns the current generated file set of a room.
func (s *RoomService) Files(ctx context.Context, roomID string) ([]domain.RoomFile, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Files",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	if _, err := repo.GetRoom(ctx, s.DB, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return repo.ListFiles(ctx, s.DB, roomID)
}

// activeRoom fetches a room and ensures it has not been finished.
func (s *RoomService) activeRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := repo.GetRoom(ctx, s.DB, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Status == domain.RoomFinished {
		return nil, ErrRoomFinished
	}
	return room, nil
}

// clip truncates a value to the configured maximum rune length.
func (s *RoomService) clip(v string, max, fallback int) string {
	if max <= 0 {
		max = fallback
	}
	if utf8.RuneCountInString(v) > max {
		return string([]rune(v)[:max])
	}
	return v
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
