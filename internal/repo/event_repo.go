// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PromptEvent model. Events are append-only: there are create and query
// helpers, and deliberately no update or delete.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// CreatePromptEvent inserts a new immutable prompt event row.
func CreatePromptEvent(ctx context.Context, db *gorm.DB, roomID, participantID, kind, text, payloadURL string) (*domain.PromptEvent, error) {
	e := &domain.PromptEvent{
		ID:            uuid.NewString(),
		RoomID:        roomID,
		ParticipantID: participantID,
		Kind:          kind,
		Text:          text,
		PayloadURL:    payloadURL,
		CreatedAt:     time.Now().UTC(),
	}
	return e, db.WithContext(ctx).Create(e).Error
}

// ListEventsAfter returns events for a room created strictly after the
// cutoff, oldest first, capped at limit. This is the analyzer's input
// window query.
func ListEventsAfter(ctx context.Context, db *gorm.DB, roomID string, after time.Time, limit int) ([]domain.PromptEvent, error) {
	var out []domain.PromptEvent
	q := db.WithContext(ctx).
		Where("room_id = ? AND created_at > ?", roomID, after).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListEventsByIDs returns the exact events referenced by ids (scoped to the
// room), in chronological order. The planner uses this so it operates on
// precisely what the analyzer reasoned about even if time has elapsed.
func ListEventsByIDs(ctx context.Context, db *gorm.DB, roomID string, ids []string) ([]domain.PromptEvent, error) {
	if len(ids) == 0 {
		return []domain.PromptEvent{}, nil
	}
	var out []domain.PromptEvent
	err := db.WithContext(ctx).
		Where("room_id = ? AND id IN ?", roomID, ids).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListEvents returns all events for a room oldest first (report engine input).
func ListEvents(ctx context.Context, db *gorm.DB, roomID string) ([]domain.PromptEvent, error) {
	var out []domain.PromptEvent
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountEvents uses a raw COUNT so a missing table surfaces as an error.
func CountEvents(db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM prompt_events WHERE room_id = ?", roomID).Scan(&total).Error
	return total, err
}

// ListEventsPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListEventsPage(db *gorm.DB, roomID string, offset, limit int) ([]domain.PromptEvent, error) {
	var out []domain.PromptEvent
	err := db.
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetEvent fetches an event by ID.
func GetEvent(db *gorm.DB, id string) (*domain.PromptEvent, error) {
	var e domain.PromptEvent
	if err := db.Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}
