// Package services defines the business logic for rooms, prompt intake, and
// the finish workflow. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Room-related errors.
var (
	// ErrRoomNotFound indicates that the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFinished is returned when an operation requires an active room
	// but the room has already been finished.
	ErrRoomFinished = errors.New("room is finished")

	// ErrParticipantNotFound indicates that the acting participant is not a
	// member of the room.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrEmptyName is returned when a join request carries a blank display name.
	ErrEmptyName = errors.New("display name is empty")
)

// Prompt-related errors.
var (
	// ErrEmptyPrompt is returned when a text prompt submission contains an
	// empty prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a prompt submission exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrInvalidKind is returned when a prompt submission carries an unknown
	// kind, or a media kind without a payload URL.
	ErrInvalidKind = errors.New("invalid prompt kind")
)

// Finish-workflow errors.
var (
	// ErrFinishExists is returned when a finish request already exists for the
	// room, in any state. A room has at most one finish lifecycle.
	ErrFinishExists = errors.New("finish request already exists")

	// ErrNoPendingFinish is returned when approve/reject is called but no
	// pending finish request exists.
	ErrNoPendingFinish = errors.New("no pending finish request")

	// ErrSelfApproval is returned when the requester of a finish request
	// attempts to approve it themselves.
	ErrSelfApproval = errors.New("requester cannot approve their own finish request")

	// ErrNoReport indicates that no collaboration report has been generated
	// for the room yet.
	ErrNoReport = errors.New("report not available")
)
