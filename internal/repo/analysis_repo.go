// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PromptAnalysis model.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// CreateAnalysis inserts a completed analyzer run.
func CreateAnalysis(ctx context.Context, db *gorm.DB, roomID string, eventIDs []string, result domain.AnalysisResult, thinking string) (*domain.PromptAnalysis, error) {
	a := &domain.PromptAnalysis{
		ID:             uuid.NewString(),
		RoomID:         roomID,
		PromptEventIDs: eventIDs,
		Analysis:       result,
		ThinkingTrace:  thinking,
		CreatedAt:      time.Now().UTC(),
	}
	return a, db.WithContext(ctx).Create(a).Error
}

// GetAnalysis fetches an analysis by ID.
func GetAnalysis(ctx context.Context, db *gorm.DB, id string) (*domain.PromptAnalysis, error) {
	var a domain.PromptAnalysis
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// LatestAnalysis returns the most recent analysis for a room, or nil when
// none exists yet (a nil result with a nil error is the "no prior run"
// signal the analyzer's window query relies on).
func LatestAnalysis(ctx context.Context, db *gorm.DB, roomID string) (*domain.PromptAnalysis, error) {
	var a domain.PromptAnalysis
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalyses returns all analyses for a room oldest first.
func ListAnalyses(ctx context.Context, db *gorm.DB, roomID string) ([]domain.PromptAnalysis, error) {
	var out []domain.PromptAnalysis
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
