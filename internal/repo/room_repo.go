// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Room and
// Participant models.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// CreateRoom inserts a new room row.
func CreateRoom(ctx context.Context, db *gorm.DB, title string) (*domain.Room, error) {
	r := &domain.Room{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    domain.RoomActive,
		CreatedAt: time.Now().UTC(),
	}
	return r, db.WithContext(ctx).Create(r).Error
}

// GetRoom fetches a room by ID.
func GetRoom(ctx context.Context, db *gorm.DB, id string) (*domain.Room, error) {
	var r domain.Room
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRoomTitle updates a room's title.
func UpdateRoomTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	return db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", id).Update("title", title).Error
}

// MarkRoomFinished flips a room's status to finished.
func MarkRoomFinished(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", id).Update("status", domain.RoomFinished).Error
}

// AddParticipant inserts a participant row for a room.
func AddParticipant(ctx context.Context, db *gorm.DB, roomID, displayName, color string) (*domain.Participant, error) {
	p := &domain.Participant{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		DisplayName: displayName,
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	}
	return p, db.WithContext(ctx).Create(p).Error
}

// GetParticipant fetches a participant by ID, ensuring it belongs to the room.
func GetParticipant(ctx context.Context, db *gorm.DB, roomID, id string) (*domain.Participant, error) {
	var p domain.Participant
	err := db.WithContext(ctx).Where("id = ? AND room_id = ?", id, roomID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns a room's participants ordered by join time.
// Duplicate display names keep only the most recent row, matching the
// report engine's attribution rules.
func ListParticipants(ctx context.Context, db *gorm.DB, roomID string) ([]domain.Participant, error) {
	var all []domain.Participant
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&all).Error
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(all))
	out := make([]domain.Participant, 0, len(all))
	for _, p := range all {
		if idx, ok := byName[p.DisplayName]; ok {
			out[idx] = p
			continue
		}
		byName[p.DisplayName] = len(out)
		out = append(out, p)
	}
	return out, nil
}

// CountParticipants returns the number of participant rows for a room.
func CountParticipants(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Participant{}).Where("room_id = ?", roomID).Count(&n).Error
	return n, err
}

// RoomExists reports whether a room row exists (soft-deleted rows excluded).
func RoomExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", id).Count(&n).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return n > 0, nil
}
