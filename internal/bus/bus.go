// Package bus publishes pipeline progress to interested subscribers (a UI
// gateway, ops tooling) over a per-room channel. Publishing is best effort:
// a failed publish never fails the pipeline stage that emitted it, callers
// log and move on.
package bus

import "context"

// Pipeline phases reported over the bus.
const (
	PhaseAnalyzing = "analyzing"
	PhasePlanning  = "planning"
	PhaseBuilding  = "building"
)

// Status values within a phase.
const (
	StatusStarted  = "started"
	StatusProgress = "progress"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// StatusUpdate is one progress notification for a room's pipeline run.
type StatusUpdate struct {
	Phase   string `json:"phase"`
	Status  string `json:"status"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Bus is the publishing contract. Implementations must be safe for
// concurrent use.
type Bus interface {
	// Publish sends an update on the room's channel.
	Publish(ctx context.Context, roomID string, update StatusUpdate) error
}

// Nop is a Bus that discards every update. Used when no broker is
// configured and in tests.
type Nop struct{}

// Publish implements Bus.
func (Nop) Publish(context.Context, string, StatusUpdate) error { return nil }
