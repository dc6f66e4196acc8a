// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed prompt
// submission, keyed by (participant_id, room_id, key). It enables safe
// retries for POST operations by returning the originally created prompt
// event without re-executing side effects (and without re-triggering the
// batching scheduler).
type Idempotency struct {
	ID            string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ParticipantID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_participant_room_key,priority:1"`
	RoomID        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_participant_room_key,priority:2"`
	Key           string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_participant_room_key,priority:3"`
	EventID       string    `gorm:"type:TEXT NOT NULL"`
	Status        int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt     time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt     time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
