// Finish-workflow HTTP handlers.
//
// This file exposes the two-party termination protocol:
//   - POST /rooms/{id}/finish          (open a finish request)
//   - POST /rooms/{id}/finish/approve  (approve; generates and stores the report)
//   - POST /rooms/{id}/finish/reject   (reject the pending request)
//   - GET  /rooms/{id}/report          (read the stored collaboration report)
//
// State conflicts (existing request, no pending request, self-approval) are
// mapped to 409/403 so clients can distinguish them from validation errors.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/services"
)

// FinishRequestPayload is the JSON payload for finish-workflow transitions.
type FinishRequestPayload struct {
	// ParticipantID identifies the acting room member.
	ParticipantID string `json:"participant_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// FinishResponse is the JSON envelope for finish-workflow state.
type FinishResponse struct {
	Finish *domain.FinishRequest `json:"finish"`
}

// finishPayload binds and validates the common finish-workflow body.
func finishPayload(c *gin.Context) (FinishRequestPayload, bool) {
	var req FinishRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil || req.ParticipantID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "participant_id required")
		return req, false
	}
	return req, true
}

// RequestFinish godoc
// @ID          requestFinish
// @Summary     Request to finish a room
// @Description Opens a pending finish request. A room has at most one finish
// @Description lifecycle; any prior request (pending, approved, or rejected)
// @Description makes this a conflict.
// @Tags        Finish
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Room ID (UUID)"  format(uuid)
// @Param       body  body  handlers.FinishRequestPayload  true  "Requester"
//
// @Success     201  {object}  handlers.FinishResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Room or participant not found"
// @Failure     409  {object}  handlers.ErrorResponse "Finish request already exists"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/finish [post]
func (h *Handlers) RequestFinish(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}
	req, valid := finishPayload(c)
	if !valid {
		return
	}

	fr, err := h.finishSvc.Request(c.Request.Context(), id, req.ParticipantID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case errors.Is(err, services.ErrParticipantNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "participant not found")
		case errors.Is(err, services.ErrFinishExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "finish request already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, FinishResponse{Finish: fr})
}

// ApproveFinish godoc
// @ID          approveFinish
// @Summary     Approve a finish request
// @Description Approves the pending finish request. The approver must be a
// @Description different participant than the requester. On success the
// @Description collaboration report is generated, stored on the request, and
// @Description the room is marked finished.
// @Tags        Finish
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Room ID (UUID)"  format(uuid)
// @Param       body  body  handlers.FinishRequestPayload  true  "Approver"
//
// @Success     200  {object}  handlers.FinishResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse "Requester cannot self-approve"
// @Failure     404  {object}  handlers.ErrorResponse "Room or participant not found"
// @Failure     409  {object}  handlers.ErrorResponse "No pending finish request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/finish/approve [post]
func (h *Handlers) ApproveFinish(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}
	req, valid := finishPayload(c)
	if !valid {
		return
	}

	fr, err := h.finishSvc.Approve(c.Request.Context(), id, req.ParticipantID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case errors.Is(err, services.ErrParticipantNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "participant not found")
		case errors.Is(err, services.ErrNoPendingFinish):
			fail(c, http.StatusConflict, ErrCodeConflict, "no pending finish request")
		case errors.Is(err, services.ErrSelfApproval):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "requester cannot approve their own finish request")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, FinishResponse{Finish: fr})
}

// RejectFinish godoc
// @ID          rejectFinish
// @Summary     Reject a finish request
// @Description Rejects the pending finish request. The room stays active, but
// @Description the finish lifecycle is spent.
// @Tags        Finish
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Room ID (UUID)"  format(uuid)
// @Param       body  body  handlers.FinishRequestPayload  true  "Rejecting participant"
//
// @Success     200  {object}  handlers.FinishResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Room not found"
// @Failure     409  {object}  handlers.ErrorResponse "No pending finish request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/finish/reject [post]
func (h *Handlers) RejectFinish(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}
	if _, valid := finishPayload(c); !valid {
		return
	}

	fr, err := h.finishSvc.Reject(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case errors.Is(err, services.ErrNoPendingFinish):
			fail(c, http.StatusConflict, ErrCodeConflict, "no pending finish request")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, FinishResponse{Finish: fr})
}

// GetReport godoc
// @ID          getReport
// @Summary     Get the collaboration report
// @Description Returns the collaboration report stored when the room's finish
// @Description request was approved.
// @Tags        Finish
// @Produce     json
//
// @Param       id  path  string  true  "Room ID (UUID)"  format(uuid)
//
// @Success     200  {object}  map[string]any  "Report document"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Room not found or report not available"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/report [get]
func (h *Handlers) GetReport(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}

	raw, err := h.finishSvc.Report(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case errors.Is(err, services.ErrNoReport):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "report not available")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
