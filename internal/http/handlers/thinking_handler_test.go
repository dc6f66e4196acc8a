package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/services"
)

// ---------- GetThinking ----------

func TestGetThinking_ReturnsLatestTrace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	stored := &domain.PromptAnalysis{
		ID:            uuid.NewString(),
		RoomID:        id,
		ThinkingTrace: "grouping two additive prompts about color",
		Analysis: domain.AnalysisResult{
			PrioritizedPrompts: []string{"make it blue"},
		},
		CreatedAt: time.Now().UTC(),
	}
	h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{
		thinking: func(_ context.Context, roomID string) (*domain.PromptAnalysis, error) {
			if roomID != id {
				t.Fatalf("room id = %q", roomID)
			}
			return stored, nil
		},
	}, stubFinishSvc{}, stubCycle{}, nil)
	r := gin.New()
	r.GET("/rooms/:id/thinking", h.GetThinking)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/"+id+"/thinking", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("thinking -> %d body=%s", w.Code, w.Body.String())
	}
	var out ThinkingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.AnalysisID != stored.ID || out.Thinking != stored.ThinkingTrace {
		t.Fatalf("unexpected body: %#v", out)
	}
	if len(out.Analysis.PrioritizedPrompts) != 1 {
		t.Fatalf("analysis not echoed: %#v", out.Analysis)
	}
}

func TestGetThinking_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	get := func(h *Handlers, path string) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/rooms/:id/thinking", h.GetThinking)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		return w
	}

	// Unknown room.
	h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{
		thinking: func(context.Context, string) (*domain.PromptAnalysis, error) {
			return nil, services.ErrRoomNotFound
		},
	}, stubFinishSvc{}, stubCycle{}, nil)
	if w := get(h, "/rooms/"+uuid.NewString()+"/thinking"); w.Code != http.StatusNotFound {
		t.Fatalf("missing room -> %d", w.Code)
	}

	// Known room that was never analyzed (stub default returns nil, nil).
	h = newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
	if w := get(h, "/rooms/"+uuid.NewString()+"/thinking"); w.Code != http.StatusNotFound {
		t.Fatalf("no analysis yet -> %d", w.Code)
	}

	// Malformed room id never reaches the service.
	if w := get(h, "/rooms/not-a-uuid/thinking"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}
}

func TestGetThinking_ServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{
		thinking: func(context.Context, string) (*domain.PromptAnalysis, error) {
			return nil, errors.New("boom")
		},
	}, stubFinishSvc{}, stubCycle{}, nil)
	r := gin.New()
	r.GET("/rooms/:id/thinking", h.GetThinking)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/"+uuid.NewString()+"/thinking", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("service error -> %d", w.Code)
	}
}
