// Analyzer thinking-trace HTTP handler.
//
// GET /rooms/{id}/thinking exposes the most recent prompt analysis for a
// room together with the reasoning trace the analyzer recorded while
// producing it, so clients can show what the pipeline was "thinking"
// between batches.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/services"
)

// ThinkingResponse is the JSON envelope for the latest analysis trace.
type ThinkingResponse struct {
	// AnalysisID identifies the analysis run the trace belongs to.
	AnalysisID string `json:"analysis_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Thinking is the raw reasoning trace recorded during the run.
	Thinking string `json:"thinking"`
	// Analysis is the structured classification the run produced.
	Analysis domain.AnalysisResult `json:"analysis"`
	// CreatedAt is when the analysis completed.
	CreatedAt time.Time `json:"created_at"`
}

// GetThinking godoc
// @ID          getThinking
// @Summary     Latest analyzer reasoning trace
// @Description Returns the most recent prompt analysis for the room with the
// @Description reasoning trace recorded while it was produced.
// @Tags        Cycle
// @Produce     json
//
// @Param       id  path  string  true  "Room ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ThinkingResponse  "Latest analysis trace"
// @Failure     400  {object}  handlers.ErrorResponse     "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse     "Room unknown or not analyzed yet"
// @Failure     500  {object}  handlers.ErrorResponse     "Internal error"
// @Router      /rooms/{id}/thinking [get]
func (h *Handlers) GetThinking(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := roomID(c)
	if !valid {
		return
	}

	a, err := h.promptSvc.LatestThinking(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if a == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no analysis yet")
		return
	}

	ok(c, http.StatusOK, ThinkingResponse{
		AnalysisID: a.ID,
		Thinking:   a.ThinkingTrace,
		Analysis:   a.Analysis,
		CreatedAt:  a.CreatedAt,
	})
}
