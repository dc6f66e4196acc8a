// Room HTTP handlers.
//
// This file exposes REST endpoints for room resources:
//   - POST /rooms            (create)
//   - POST /rooms/{id}/join  (join as a participant)
//   - GET  /rooms/{id}       (room state with participants + finish status)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/services"
	"github.com/vibedeux/go-room-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RoomService defines room lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RoomService interface {
	// Create starts a new room with an optional title.
	Create(ctx context.Context, title string) (*domain.Room, error)
	// Join adds a participant to an active room.
	Join(ctx context.Context, roomID, displayName string) (*domain.Participant, error)
	// Get returns a room and its participants.
	Get(ctx context.Context, roomID string) (*domain.Room, []domain.Participant, error)
	// Files returns the room's current generated file set.
	Files(ctx context.Context, roomID string) ([]domain.RoomFile, error)
}

// PromptService defines prompt intake and listing operations.
type PromptService interface {
	// Submit validates and persists one prompt event.
	Submit(ctx context.Context, roomID, participantID, kind, text, payloadURL string) (*domain.PromptEvent, error)
	// ListPage returns a page of prompt events within a room and the total count.
	ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.PromptEvent, int64, error)
	// LatestThinking returns the most recent analysis with its reasoning
	// trace, or nil when the room has none yet.
	LatestThinking(ctx context.Context, roomID string) (*domain.PromptAnalysis, error)
}

// FinishService defines the two-party finish workflow operations.
type FinishService interface {
	// Request opens a finish request on behalf of a participant.
	Request(ctx context.Context, roomID, requesterID string) (*domain.FinishRequest, error)
	// Approve approves the pending request and finishes the room.
	Approve(ctx context.Context, roomID, approverID string) (*domain.FinishRequest, error)
	// Reject rejects the pending request.
	Reject(ctx context.Context, roomID string) (*domain.FinishRequest, error)
	// Latest returns the most recent finish request, or nil.
	Latest(ctx context.Context, roomID string) (*domain.FinishRequest, error)
	// Report returns the serialized collaboration report of a finished room.
	Report(ctx context.Context, roomID string) ([]byte, error)
}

// CycleRunner runs one generation cycle for a room (analyze, plan, build).
type CycleRunner interface {
	Run(ctx context.Context, roomID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for rooms, prompts, the generation cycle,
// and the finish workflow. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	roomSvc   RoomService
	promptSvc PromptService
	finishSvc FinishService

	cycle CycleRunner
	// running reports whether a cycle is already in flight for a room
	// (injected from the scheduler).
	running func(roomID string) bool
}

// New constructs and returns a Handlers instance bound to the given services.
func New(roomSvc RoomService, promptSvc PromptService, finishSvc FinishService, cycle CycleRunner, running func(roomID string) bool) *Handlers {
	if running == nil {
		running = func(string) bool { return false }
	}
	return &Handlers{roomSvc: roomSvc, promptSvc: promptSvc, finishSvc: finishSvc, cycle: cycle, running: running}
}

//
// DTOs
//

// CreateRoomRequest is the JSON payload for creating a room.
type CreateRoomRequest struct {
	// Title optionally sets the room title; a default is used when empty.
	Title string `json:"title" example:"Coffee shop landing page"`
}

// JoinRoomRequest is the JSON payload for joining a room.
type JoinRoomRequest struct {
	// DisplayName is shown to other participants (1–64 chars).
	DisplayName string `json:"display_name" binding:"required,min=1,max=64" example:"alice"`
}

// RoomResponse is the JSON envelope for room state.
type RoomResponse struct {
	Room         *domain.Room         `json:"room"`
	Participants []domain.Participant `json:"participants"`
	// Finish is the latest finish request, if the workflow was started.
	Finish *domain.FinishRequest `json:"finish,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// roomID validates the :id path parameter as a UUID.
func roomID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// CreateRoom godoc
// @ID          createRoom
// @Summary     Create a new room
// @Description Creates a room and returns the room resource.
// @Tags        Rooms
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateRoomRequest  true  "Create room payload"
//
// @Success     201  {object}  domain.Room
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms [post]
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	title := strings.TrimSpace(req.Title)

	room, err := h.roomSvc.Create(c.Request.Context(), title)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, room)
}

// JoinRoom godoc
// @ID          joinRoom
// @Summary     Join a room
// @Description Adds a participant to an active room and returns the participant
// @Description resource (including the assigned display color).
// @Tags        Rooms
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Room ID (UUID)"  format(uuid)
// @Param       body  body  handlers.JoinRoomRequest  true  "Join payload"
//
// @Success     201  {object}  domain.Participant
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Room not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Room finished"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms/{id}/join [post]
func (h *Handlers) JoinRoom(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DisplayName) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name required (1-64 chars)")
		return
	}

	p, err := h.roomSvc.Join(c.Request.Context(), id, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case errors.Is(err, services.ErrRoomFinished):
			fail(c, http.StatusConflict, ErrCodeConflict, "room is finished")
		case errors.Is(err, services.ErrEmptyName):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name required (1-64 chars)")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, p)
}

// GetRoom godoc
// @ID          getRoom
// @Summary     Get room state
// @Description Returns the room, its participants, and the latest finish
// @Description request if the finish workflow has started.
// @Tags        Rooms
// @Produce     json
//
// @Param       id  path  string  true  "Room ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.RoomResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Room not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms/{id} [get]
func (h *Handlers) GetRoom(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()

	room, members, err := h.roomSvc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	finish, err := h.finishSvc.Latest(ctx, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, RoomResponse{Room: room, Participants: members, Finish: finish})
}
