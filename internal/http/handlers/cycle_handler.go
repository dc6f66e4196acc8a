// Generation-cycle HTTP handler.
//
// POST /rooms/{id}/tick runs one generation cycle (analyze → plan → build)
// synchronously. When a cycle is already in flight for the room, the request
// is acknowledged with 202 Accepted instead of starting a second run; the
// pipeline's single-flight groups make concurrent ticks share one execution
// in any case.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibedeux/go-room-backend/internal/reasoning"
	"github.com/vibedeux/go-room-backend/internal/services"
)

// TickResponse is the JSON envelope for a cycle trigger.
type TickResponse struct {
	// Status is "completed" for a finished cycle or "in_progress" when the
	// request joined a cycle that was already running.
	Status string `json:"status" example:"completed"`
}

// Tick godoc
// @ID          tick
// @Summary     Trigger a generation cycle
// @Description Runs one analyze/plan/build cycle for the room. Returns 202
// @Description when a cycle is already in progress.
// @Tags        Cycle
// @Produce     json
//
// @Param       id  path  string  true  "Room ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.TickResponse  "Cycle completed"
// @Success     202  {object}  handlers.TickResponse  "Cycle already in progress"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Room not found"
// @Failure     502  {object}  handlers.ErrorResponse "Reasoning service returned malformed output"
// @Failure     500  {object}  handlers.ErrorResponse "Cycle failed"
// @Router      /rooms/{id}/tick [post]
func (h *Handlers) Tick(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := roomID(c)
	if !valid {
		return
	}

	// Surface 404 before touching the pipeline.
	if _, _, err := h.roomSvc.Get(ctx, id); err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if h.running(id) {
		ok(c, http.StatusAccepted, TickResponse{Status: "in_progress"})
		return
	}

	if err := h.cycle.Run(ctx, id); err != nil {
		if errors.Is(err, reasoning.ErrMalformedResponse) {
			fail(c, http.StatusBadGateway, ErrCodeCycleFailed, "reasoning service returned malformed output")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCycleFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, TickResponse{Status: "completed"})
}
