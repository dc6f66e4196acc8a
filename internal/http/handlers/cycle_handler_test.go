package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/reasoning"
	"github.com/vibedeux/go-room-backend/internal/services"
)

func TestTick_CompletedAndErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	run := func(h *Handlers) *httptest.ResponseRecorder {
		r := gin.New()
		r.POST("/rooms/:id/tick", h.Tick)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms/"+id+"/tick", nil)
		r.ServeHTTP(w, req)
		return w
	}

	// Success -> 200 completed, cycle invoked with the room id
	{
		var ran string
		h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{
			run: func(_ context.Context, roomID string) error {
				ran = roomID
				return nil
			},
		}, nil)
		w := run(h)
		if w.Code != http.StatusOK {
			t.Fatalf("tick -> %d body=%s", w.Code, w.Body.String())
		}
		if ran != id {
			t.Fatalf("cycle ran for %q", ran)
		}
		var out TickResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Status != "completed" {
			t.Fatalf("status = %q", out.Status)
		}
	}

	// Cycle in flight -> 202, runner never invoked
	{
		h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{
			run: func(context.Context, string) error {
				t.Fatal("cycle ran while in progress")
				return nil
			},
		}, func(string) bool { return true })
		w := run(h)
		if w.Code != http.StatusAccepted {
			t.Fatalf("in flight -> %d", w.Code)
		}
		var out TickResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Status != "in_progress" {
			t.Fatalf("status = %q", out.Status)
		}
	}

	// Room missing -> 404
	{
		h := newTestHandlers(stubRoomSvc{
			get: func(context.Context, string) (*domain.Room, []domain.Participant, error) {
				return nil, nil, services.ErrRoomNotFound
			},
		}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
		if w := run(h); w.Code != http.StatusNotFound {
			t.Fatalf("missing room -> %d", w.Code)
		}
	}

	// Malformed reasoning output -> 502
	{
		h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{
			run: func(context.Context, string) error {
				return fmt.Errorf("analyzer: %w", reasoning.ErrMalformedResponse)
			},
		}, nil)
		w := run(h)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("malformed -> %d", w.Code)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("json: %v", err)
		}
		if er.Code != ErrCodeCycleFailed {
			t.Fatalf("code = %q", er.Code)
		}
	}

	// Other cycle errors -> 500
	{
		h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{
			run: func(context.Context, string) error { return errors.New("boom") },
		}, nil)
		if w := run(h); w.Code != http.StatusInternalServerError {
			t.Fatalf("cycle error -> %d", w.Code)
		}
	}
}
