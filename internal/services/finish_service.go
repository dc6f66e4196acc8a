// Package services – FinishService
//
// This file implements FinishService, the two-party termination workflow for
// rooms. A room has at most one finish lifecycle: none → pending → approved
// or rejected, and both outcomes are terminal. Approval requires a second
// participant, triggers the collaboration report synchronously, stores it on
// the request, and marks the room finished.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"
	"github.com/vibedeux/go-room-backend/internal/report"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// finishIntentRE matches phrasings that signal a participant wants to wrap
// the room up. Detection is advisory: clients use it to suggest opening a
// finish request, it never changes state by itself.
var finishIntentRE = regexp.MustCompile(`(?i)\b(finish|done|complete|wrap up|end this|finalize|let's finish|i'm done|we're done)\b`)

// DetectFinishIntent reports whether a prompt text reads as a request to
// finish the room.
func DetectFinishIntent(text string) bool {
	return finishIntentRE.MatchString(text)
}

// ReportGenerator defines the report contract required by FinishService.
type ReportGenerator interface {
	// Generate builds the room's collaboration report from its event history.
	Generate(ctx context.Context, roomID string) (*report.Report, error)
}

// FinishService coordinates the finish-request state machine and the final
// report generated at approval time.
type FinishService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Reports generates the collaboration report stored on approval.
	Reports ReportGenerator
}

// Request opens a finish request on behalf of a participant. It fails with
// ErrFinishExists when any prior request exists for the room, whatever its
// state: a rejected finish is terminal for the room.
func (s *FinishService) Request(ctx context.Context, roomID, requesterID string) (*domain.FinishRequest, error) {
	tr := otel.Tracer("services/FinishService")
	ctx, span := tr.Start(ctx, "Request",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("participant.id", requesterID),
		),
	)
	defer span.End()

	if err := s.requireMember(ctx, roomID, requesterID); err != nil {
		return nil, err
	}

	prior, err := repo.LatestFinishRequest(ctx, s.DB, roomID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return nil, ErrFinishExists
	}
	return repo.CreateFinishRequest(ctx, s.DB, roomID, requesterID)
}

// Approve approves the room's pending finish request. The approver must be a
// participant other than the requester. The collaboration report is generated
// synchronously and stored on the request before the request is marked
// approved and the room finished.
func (s *FinishService) Approve(ctx context.Context, roomID, approverID string) (*domain.FinishRequest, error) {
	tr := otel.Tracer("services/FinishService")
	ctx, span := tr.Start(ctx, "Approve",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("participant.id", approverID),
		),
	)
	defer span.End()

	if err := s.requireMember(ctx, roomID, approverID); err != nil {
		return nil, err
	}

	pending, err := repo.PendingFinishRequest(ctx, s.DB, roomID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrNoPendingFinish
	}
	if pending.RequesterID == approverID {
		return nil, ErrSelfApproval
	}

	rep, err := s.Reports.Generate(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.ApproveFinishRequest(ctx, tx, pending.ID, approverID, raw); err != nil {
			return err
		}
		return repo.MarkRoomFinished(ctx, tx, roomID)
	})
	if err != nil {
		return nil, err
	}

	pending.ApproverID = approverID
	pending.Status = domain.FinishApproved
	pending.Report = raw
	return pending, nil
}

// Reject rejects the room's pending finish request. The room stays active,
// but the finish lifecycle is spent: no further requests are accepted.
func (s *FinishService) Reject(ctx context.Context, roomID string) (*domain.FinishRequest, error) {
	tr := otel.Tracer("services/FinishService")
	ctx, span := tr.Start(ctx, "Reject",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}

	pending, err := repo.PendingFinishRequest(ctx, s.DB, roomID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrNoPendingFinish
	}
	if err := repo.RejectFinishRequest(ctx, s.DB, roomID, pending.ID); err != nil {
		return nil, err
	}
	pending.Status = domain.FinishRejected
	return pending, nil
}

// Latest returns the room's most recent finish request, or nil when the
// finish workflow has not been started.
func (s *FinishService) Latest(ctx context.Context, roomID string) (*domain.FinishRequest, error) {
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return repo.LatestFinishRequest(ctx, s.DB, roomID)
}

// Report returns the serialized collaboration report stored on the approved
// finish request, or ErrNoReport when the room has not been finished.
func (s *FinishService) Report(ctx context.Context, roomID string) ([]byte, error) {
	tr := otel.Tracer("services/FinishService")
	ctx, span := tr.Start(ctx, "Report",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	latest, err := repo.LatestFinishRequest(ctx, s.DB, roomID)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Status != domain.FinishApproved || len(latest.Report) == 0 {
		return nil, ErrNoReport
	}
	return latest.Report, nil
}

// requireRoom ensures the room exists.
func (s *FinishService) requireRoom(ctx context.Context, roomID string) error {
	exists, err := repo.RoomExists(ctx, s.DB, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}
	return nil
}

// requireMember ensures the room exists and the participant belongs to it.
func (s *FinishService) requireMember(ctx context.Context, roomID, participantID string) error {
	if err := s.requireRoom(ctx, roomID); err != nil {
		return err
	}
	if _, err := repo.GetParticipant(ctx, s.DB, roomID, participantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	return nil
}
