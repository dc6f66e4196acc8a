// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the FilePatch
// model and the per-room file set the patches apply to.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// CreatePatch inserts a built file patch.
func CreatePatch(ctx context.Context, db *gorm.DB, roomID, baseSpecHash string, set domain.PatchSet) (*domain.FilePatch, error) {
	p := &domain.FilePatch{
		ID:           uuid.NewString(),
		RoomID:       roomID,
		BaseSpecHash: baseSpecHash,
		Patch:        set,
		CreatedAt:    time.Now().UTC(),
	}
	return p, db.WithContext(ctx).Create(p).Error
}

// FindPatchBySpecHash returns the patch built for the given spec content
// hash, or nil when none exists. The builder's idempotency check.
func FindPatchBySpecHash(ctx context.Context, db *gorm.DB, roomID, specHash string) (*domain.FilePatch, error) {
	var p domain.FilePatch
	err := db.WithContext(ctx).
		Where("room_id = ? AND base_spec_hash = ?", roomID, specHash).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPatch fetches a patch by ID.
func GetPatch(ctx context.Context, db *gorm.DB, id string) (*domain.FilePatch, error) {
	var p domain.FilePatch
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertFile creates or replaces the (room, path) entry of the file set.
func UpsertFile(ctx context.Context, db *gorm.DB, roomID, path, content string) error {
	f := &domain.RoomFile{
		RoomID:    roomID,
		Path:      path,
		Content:   content,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Save(f).Error
}

// DeleteFile removes the (room, path) entry; removing a missing path is not
// an error (patch application must be total).
func DeleteFile(ctx context.Context, db *gorm.DB, roomID, path string) error {
	return db.WithContext(ctx).
		Where("room_id = ? AND path = ?", roomID, path).
		Delete(&domain.RoomFile{}).Error
}

// GetFile fetches one file of a room's file set, or nil when absent.
func GetFile(ctx context.Context, db *gorm.DB, roomID, path string) (*domain.RoomFile, error) {
	var f domain.RoomFile
	err := db.WithContext(ctx).
		Where("room_id = ? AND path = ?", roomID, path).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFiles returns the full file set for a room ordered by path.
func ListFiles(ctx context.Context, db *gorm.DB, roomID string) ([]domain.RoomFile, error) {
	var out []domain.RoomFile
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("path ASC").
		Find(&out).Error
	return out, err
}
