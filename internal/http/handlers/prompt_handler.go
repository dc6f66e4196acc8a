// Prompt HTTP handlers.
//
// This file exposes REST endpoints for prompt events:
//   - POST /rooms/{id}/prompts   (submit a prompt)
//   - GET  /rooms/{id}/prompts   (list paginated prompt events)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (PromptService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// submission exists for (participant, room, key), the handler returns that
// recorded prompt event and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"
	"github.com/vibedeux/go-room-backend/internal/services"
)

//
// DTOs
//

// PostPromptRequest is the JSON payload for submitting a prompt event.
//
// Text is normalized by the handler (line endings and excessive blank lines)
// before being passed to the service layer. The service also enforces a
// maximum rune count, which can be configured in PromptService.
type PostPromptRequest struct {
	// ParticipantID identifies the submitting room member.
	ParticipantID string `json:"participant_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Kind is one of text, image, audio. Defaults to text.
	Kind string `json:"kind" example:"text"`
	// Text is the prompt content (required for text prompts).
	Text string `json:"text" example:"make the hero section dark with neon accents"`
	// PayloadURL points at the uploaded media (required for image/audio).
	PayloadURL string `json:"payload_url,omitempty" example:"https://cdn.example/mood.png"`
}

// PostPromptResponse is the JSON envelope for a newly created prompt event.
type PostPromptResponse struct {
	// Event is the persisted prompt event.
	Event *domain.PromptEvent `json:"event"`
	// FinishIntent flags text that reads as a request to wrap the room up,
	// so clients can suggest opening a finish request.
	FinishIntent bool `json:"finish_intent,omitempty"`
}

// ListPromptsResponse contains a page of prompt events and pagination metadata.
type ListPromptsResponse struct {
	Events     []domain.PromptEvent `json:"events"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxPromptRunes inspects the concrete PromptService for a configured
// prompt-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxPromptRunes(promptSvc PromptService) int {
	const fallback = 4000
	if ps, ok := promptSvc.(*services.PromptService); ok {
		if ps.MaxPromptRunes > 0 {
			return ps.MaxPromptRunes
		}
	}
	return fallback
}

// promptDB extracts the GORM handle from the concrete PromptService, for
// best-effort ETag and idempotency lookups. Returns nil for fakes.
func promptDB(promptSvc PromptService) *gorm.DB {
	if ps, ok := promptSvc.(*services.PromptService); ok {
		return ps.DB
	}
	return nil
}

//
// Handlers
//

// PostPrompt godoc
// @ID          postPrompt
// @Summary     Submit a prompt
// @Description Appends a prompt event to the room and queues a generation cycle.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Room ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostPromptRequest  true  "Prompt payload"
//
// @Success     201  {object}  handlers.PostPromptResponse  "Created prompt event"
// @Failure     400  {object}  handlers.ErrorResponse       "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse       "Room or participant not found"
// @Failure     409  {object}  handlers.ErrorResponse       "Room finished"
// @Failure     500  {object}  handlers.ErrorResponse       "Internal error"
// @Router      /rooms/{id}/prompts [post]
func (h *Handlers) PostPrompt(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := roomID(c)
	if !valid {
		return
	}

	var req PostPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "participant_id required")
		return
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = domain.KindText
	}

	// Sanitize + early size cap to fail fast at the edge.
	text := sanitizeText(req.Text)
	maxRunes := discoverMaxPromptRunes(h.promptSvc)
	if kind == domain.KindText {
		if text == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
			return
		}
		if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", maxRunes))
			return
		}
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := idempotencyKey(c)
	db := promptDB(h.promptSvc)
	if idemKey != "" && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, req.ParticipantID, id, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := repo.GetEvent(db, rec.EventID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusCreated, PostPromptResponse{
					Event:        prev,
					FinishIntent: prev.Kind == domain.KindText && services.DetectFinishIntent(prev.Text),
				})
				return
			}
		}
	}

	// Normal processing (service has a second guard for length).
	ev, err := h.promptSvc.Submit(ctx, id, req.ParticipantID, kind, text, req.PayloadURL)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case services.ErrParticipantNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "participant not found")
		case services.ErrRoomFinished:
			fail(c, http.StatusConflict, ErrCodeConflict, "room is finished")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", maxRunes))
		case services.ErrEmptyPrompt:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		case services.ErrInvalidKind:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be text, image, or audio (media kinds need payload_url)")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && db != nil {
		ttl := 24 * time.Hour
		_, _ = repo.CreateIdempotency(ctx, db, req.ParticipantID, id, idemKey, ev.ID, http.StatusCreated, ttl)
	}

	ok(c, http.StatusCreated, PostPromptResponse{
		Event:        ev,
		FinishIntent: kind == domain.KindText && services.DetectFinishIntent(ev.Text),
	})
}

// ListPrompts godoc
// @ID          listPrompts
// @Summary     List prompt events in a room
// @Description Returns a paginated list of prompt events for the given room.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Prompts
// @Produce     json
//
// @Param       id             path   string  true  "Room ID (UUID)"  format(uuid)
// @Param       If-None-Match  header string  false "Return 304 if ETag matches"
// @Param       page           query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPromptsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Room not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/prompts [get]
func (h *Handlers) ListPrompts(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := roomID(c)
	if !valid {
		return
	}

	// ETag pre-check (best effort).
	if db := promptDB(h.promptSvc); db != nil {
		count, maxTS, err := repo.EventsStats(ctx, db, id)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"prompts:%s:%d:%d"`, id, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.promptSvc.ListPage(ctx, id, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListPromptsResponse{
		Events: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// idempotencyKey extracts an idempotency key if an upstream middleware has
// already validated/stashed it. The fallback behavior reads the
// "Idempotency-Key" header directly when no dedicated middleware exists.
func idempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
