// Package domain defines the persistence models for rooms, participants,
// prompt events, and the artifacts produced by the generation pipeline
// (analyses, design specs, file patches). These types are mapped with GORM
// and form the core data layer of the room backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Prompt event kinds accepted by the system.
const (
	KindText  = "text"
	KindImage = "image"
	KindAudio = "audio"
)

// Room lifecycle statuses.
const (
	RoomActive   = "active"
	RoomFinished = "finished"
)

// Finish request statuses.
const (
	FinishPending  = "pending"
	FinishApproved = "approved"
	FinishRejected = "rejected"
)

// Room is the aggregate root. Every other entity in this package is scoped
// to a room by RoomID and lives for the life of the room.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Title: human-readable room title (auto-generated from the first prompt
//     if not provided).
//   - Status: "active" until a finish request is approved, then "finished".
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Room struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:'New room'"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','finished')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Room.
func (Room) TableName() string { return "rooms" }

// Participant is a member of a room. Display colors are assigned at join
// time so the report engine and any UI can attribute work consistently.
type Participant struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	RoomID      string    `json:"room_id"      gorm:"type:char(36);not null;index:idx_room_participants"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(64);not null"`
	Color       string    `json:"color"        gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `json:"joined_at"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Participant.
func (Participant) TableName() string { return "participants" }

// PromptEvent is a single participant submission. Events are immutable once
// created and are never mutated or deleted while the room lives; the
// pipeline and the report engine both treat them as an append-only log
// totally ordered by CreatedAt.
type PromptEvent struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	RoomID        string    `json:"room_id"        gorm:"type:char(36);not null;index:idx_room_events,priority:1"`
	ParticipantID string    `json:"participant_id" gorm:"type:char(36);not null;index"`
	Kind          string    `json:"kind"           gorm:"type:varchar(16);not null;check:kind IN ('text','image','audio')"`
	Text          string    `json:"text,omitempty" gorm:"type:text"`
	PayloadURL    string    `json:"payload_url,omitempty" gorm:"type:varchar(2048)"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index:idx_room_events,priority:2"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PromptEvent.
func (PromptEvent) TableName() string { return "prompt_events" }

// PromptAnalysis is the output of one completed conflict-analyzer run.
// It records exactly which events were analyzed (PromptEventIDs) and the
// typed classification returned by the reasoning service. Rows are created
// once per completed run and are immutable afterwards.
//
// Invariant: Analysis.PrioritizedPrompts is a permutation of PromptEventIDs
// and is never empty while PromptEventIDs is non-empty (the analyzer
// substitutes chronological order when the service returns an empty list).
type PromptAnalysis struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	RoomID         string         `json:"room_id"          gorm:"type:char(36);not null;index:idx_room_analyses,priority:1"`
	PromptEventIDs []string       `json:"prompt_event_ids" gorm:"type:text;serializer:json"`
	Analysis       AnalysisResult `json:"analysis"         gorm:"type:text;serializer:json"`
	ThinkingTrace  string         `json:"thinking_trace"   gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"       gorm:"index:idx_room_analyses,priority:2"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PromptAnalysis.
func (PromptAnalysis) TableName() string { return "prompt_analyses" }

// DesignSpec is the cumulative structured spec produced by the planner.
// SpecHash is a deterministic content hash of the canonical serialization
// of Spec; two planner runs that produce byte-identical content share one
// row (the hash is unique per room).
type DesignSpec struct {
	ID         string      `json:"id"          gorm:"type:char(36);primaryKey"`
	RoomID     string      `json:"room_id"     gorm:"type:char(36);not null;uniqueIndex:ux_room_spec_hash,priority:1"`
	AnalysisID string      `json:"analysis_id" gorm:"type:char(36);not null;index"`
	SpecHash   string      `json:"spec_hash"   gorm:"type:char(64);not null;uniqueIndex:ux_room_spec_hash,priority:2"`
	Spec       SpecContent `json:"spec"        gorm:"type:text;serializer:json"`
	CreatedAt  time.Time   `json:"created_at"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DesignSpec.
func (DesignSpec) TableName() string { return "design_specs" }

// FilePatch is the builder's output for one spec. BaseSpecHash is the
// idempotency key: at most one patch per (room, spec content), so building
// the same spec twice returns the stored patch instead of re-invoking the
// reasoning service.
type FilePatch struct {
	ID           string    `json:"id"             gorm:"type:char(36);primaryKey"`
	RoomID       string    `json:"room_id"        gorm:"type:char(36);not null;uniqueIndex:ux_room_patch_hash,priority:1"`
	BaseSpecHash string    `json:"base_spec_hash" gorm:"type:char(64);not null;uniqueIndex:ux_room_patch_hash,priority:2"`
	Patch        PatchSet  `json:"patch"          gorm:"type:text;serializer:json"`
	CreatedAt    time.Time `json:"created_at"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for FilePatch.
func (FilePatch) TableName() string { return "file_patches" }

// RoomFile is one entry of a room's file set, keyed by (room_id, path).
// Directories are implicit in path strings and are not modeled.
type RoomFile struct {
	RoomID    string    `json:"room_id"  gorm:"type:char(36);primaryKey"`
	Path      string    `json:"path"     gorm:"type:varchar(512);primaryKey"`
	Content   string    `json:"content"  gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for RoomFile.
func (RoomFile) TableName() string { return "room_files" }

// FinishRequest is the two-party termination protocol entity. A room has at
// most one finish lifecycle: none → pending → approved | rejected, with
// both outcomes terminal. The final report is stored on the request when it
// is approved.
type FinishRequest struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	RoomID      string    `json:"room_id"      gorm:"type:char(36);not null;index"`
	RequesterID string    `json:"requester_id" gorm:"type:char(36);not null"`
	ApproverID  string    `json:"approver_id,omitempty" gorm:"type:char(36)"`
	Status      string    `json:"status"       gorm:"type:varchar(16);not null;check:status IN ('pending','approved','rejected')"`
	Report      []byte    `json:"-"            gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for FinishRequest.
func (FinishRequest) TableName() string { return "room_finishes" }

// PlatformProject links a room to a project on the external code-generation
// platform (the alternative cycle variant). One project per room.
type PlatformProject struct {
	RoomID     string    `json:"room_id"    gorm:"type:char(36);primaryKey"`
	ProjectID  string    `json:"project_id" gorm:"type:varchar(128);not null"`
	ChatID     string    `json:"chat_id"    gorm:"type:varchar(128);not null"`
	VersionID  string    `json:"version_id,omitempty"  gorm:"type:varchar(128)"`
	PreviewURL string    `json:"preview_url,omitempty" gorm:"type:varchar(2048)"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for PlatformProject.
func (PlatformProject) TableName() string { return "platform_projects" }
