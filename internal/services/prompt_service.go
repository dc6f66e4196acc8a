// Package services – PromptService
//
// This file implements PromptService, the application-level component that
// owns prompt intake. It validates submissions, checks room membership,
// persists the event, and notifies the batching scheduler so a generation
// cycle can be queued.
//
// Optional enhancement: it also auto-generates a room title from the first
// text prompt when the room still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include room/participant identifiers and pagination parameters where
// applicable.

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

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// default titles we consider placeholder and eligible for auto-generation
const (
	defaultTitleNew      = "New room"
	defaultTitleUntitled = "Untitled"
)

// PromptService coordinates prompt validation, persistence, and scheduling.
type PromptService struct {
	DB *gorm.DB

	// Notify, when set, is called after a prompt is committed so the batching
	// scheduler can open or extend the room's window.
	Notify func(roomID string)

	// Optional guards
	MaxPromptRunes int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// Submit validates a prompt event, verifies the room and participant, and
// persists the event. It may auto-generate the room title from the first text
// prompt, and notifies the scheduler on success.
func (s *PromptService) Submit(ctx context.Context, roomID, participantID, kind, text, payloadURL string) (*domain.PromptEvent, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("participant.id", participantID),
			attribute.String("kind", kind),
		),
	)
	defer span.End()

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
	if _, err := repo.GetParticipant(ctx, s.DB, roomID, participantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}

	// Normalize & validate by kind
	text = strings.TrimSpace(text)
	switch kind {
	case domain.KindText:
		if text == "" {
			return nil, ErrEmptyPrompt
		}
		if s.MaxPromptRunes > 0 && utf8.RuneCountInString(text) > s.MaxPromptRunes {
			return nil, ErrTooLong
		}
	case domain.KindImage, domain.KindAudio:
		if strings.TrimSpace(payloadURL) == "" {
			return nil, ErrInvalidKind
		}
	default:
		return nil, ErrInvalidKind
	}

	// Persist the event (and maybe update the title) in one transaction
	var event *domain.PromptEvent
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := repo.CreatePromptEvent(ctx, tx, roomID, participantID, kind, text, payloadURL)
		if err != nil {
			return err
		}
		event = ev

		// Auto-title if placeholder
		if kind == domain.KindText && s.shouldAutoTitle(room.Title) {
			gen := s.generateTitleFromPrompt(text)
			if gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Room{}).Where("id = ?", roomID).Update("title", gen).Error; uerr == nil {
					room.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Notify != nil {
		s.Notify(roomID)
	}
	return event, nil
}

// ListPage returns paginated prompt events for a room.
func (s *PromptService) ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.PromptEvent, int64, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure the room exists
	exists, err := repo.RoomExists(ctx, s.DB, roomID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrRoomNotFound
	}

	total, err := repo.CountEvents(s.DB.WithContext(ctx), roomID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PromptEvent{}, 0, nil
	}

	items, err := repo.ListEventsPage(s.DB.WithContext(ctx), roomID, offset, pageSize)
	return items, total, err
}

// LatestThinking returns the most recent prompt analysis for a room,
// including the reasoning trace recorded during the run, or nil when the
// room has not been analyzed yet.
func (s *PromptService) LatestThinking(ctx context.Context, roomID string) (*domain.PromptAnalysis, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "LatestThinking",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	exists, err := repo.RoomExists(ctx, s.DB, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}
	return repo.LatestAnalysis(ctx, s.DB, roomID)
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *PromptService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromPrompt derives a concise title from the prompt.
func (s *PromptService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *PromptService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *PromptService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "room42").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
