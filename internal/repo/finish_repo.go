// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// FinishRequest state machine rows and the room's platform-project link.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// CreateFinishRequest inserts a pending finish request.
func CreateFinishRequest(ctx context.Context, db *gorm.DB, roomID, requesterID string) (*domain.FinishRequest, error) {
	now := time.Now().UTC()
	fr := &domain.FinishRequest{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		RequesterID: requesterID,
		Status:      domain.FinishPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return fr, db.WithContext(ctx).Create(fr).Error
}

// LatestFinishRequest returns the most recent finish request for a room, or
// nil when the room has none.
func LatestFinishRequest(ctx context.Context, db *gorm.DB, roomID string) (*domain.FinishRequest, error) {
	var fr domain.FinishRequest
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		First(&fr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// PendingFinishRequest returns the room's pending request, or nil.
func PendingFinishRequest(ctx context.Context, db *gorm.DB, roomID string) (*domain.FinishRequest, error) {
	var fr domain.FinishRequest
	err := db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, domain.FinishPending).
		First(&fr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// ApproveFinishRequest marks a pending request approved, recording the
// approver and the serialized final report.
func ApproveFinishRequest(ctx context.Context, db *gorm.DB, id, approverID string, report []byte) error {
	return db.WithContext(ctx).Model(&domain.FinishRequest{}).
		Where("id = ? AND status = ?", id, domain.FinishPending).
		Updates(map[string]any{
			"approver_id": approverID,
			"status":      domain.FinishApproved,
			"report":      report,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// RejectFinishRequest marks a pending request rejected.
func RejectFinishRequest(ctx context.Context, db *gorm.DB, roomID, id string) error {
	return db.WithContext(ctx).Model(&domain.FinishRequest{}).
		Where("id = ? AND room_id = ? AND status = ?", id, roomID, domain.FinishPending).
		Updates(map[string]any{
			"status":     domain.FinishRejected,
			"updated_at": time.Now().UTC(),
		}).Error
}

// SavePlatformProject creates or replaces the room's platform-project link.
func SavePlatformProject(ctx context.Context, db *gorm.DB, p *domain.PlatformProject) error {
	p.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(p).Error
}

// GetPlatformProject fetches the room's platform-project link, or nil.
func GetPlatformProject(ctx context.Context, db *gorm.DB, roomID string) (*domain.PlatformProject, error) {
	var p domain.PlatformProject
	err := db.WithContext(ctx).Where("room_id = ?", roomID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
