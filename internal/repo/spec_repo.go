// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// DesignSpec model, including the content-hash dedup lookup the planner
// depends on.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// CreateSpec inserts a new design spec linked to the analysis that produced
// it. A second insert for the same (room_id, spec_hash) returns
// ErrDuplicate so callers can fall back to the stored row.
func CreateSpec(ctx context.Context, db *gorm.DB, roomID, analysisID, specHash string, content domain.SpecContent) (*domain.DesignSpec, error) {
	s := &domain.DesignSpec{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		AnalysisID: analysisID,
		SpecHash:   specHash,
		Spec:       content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return s, nil
}

// GetSpec fetches a spec by ID.
func GetSpec(ctx context.Context, db *gorm.DB, id string) (*domain.DesignSpec, error) {
	var s domain.DesignSpec
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindSpecByHash returns the spec with the given content hash for a room,
// or nil when no such spec exists. This is the planner's dedup check: equal
// content hashes mean the spec must never be stored twice.
func FindSpecByHash(ctx context.Context, db *gorm.DB, roomID, specHash string) (*domain.DesignSpec, error) {
	var s domain.DesignSpec
	err := db.WithContext(ctx).
		Where("room_id = ? AND spec_hash = ?", roomID, specHash).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestSpec returns the most recent spec for a room, or nil when the room
// has no specs yet. It is the "current design" context for both the
// analyzer and the planner.
func LatestSpec(ctx context.Context, db *gorm.DB, roomID string) (*domain.DesignSpec, error) {
	var s domain.DesignSpec
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSpecs returns all specs for a room oldest first.
func ListSpecs(ctx context.Context, db *gorm.DB, roomID string) ([]domain.DesignSpec, error) {
	var out []domain.DesignSpec
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
