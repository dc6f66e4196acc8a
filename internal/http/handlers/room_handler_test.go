package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/services"
)

// ---------- flexible service stubs ----------

type stubRoomSvc struct {
	create func(context.Context, string) (*domain.Room, error)
	join   func(context.Context, string, string) (*domain.Participant, error)
	get    func(context.Context, string) (*domain.Room, []domain.Participant, error)
	files  func(context.Context, string) ([]domain.RoomFile, error)
}

func (s stubRoomSvc) Create(ctx context.Context, title string) (*domain.Room, error) {
	if s.create != nil {
		return s.create(ctx, title)
	}
	return &domain.Room{ID: uuid.NewString(), Title: title, Status: domain.RoomActive}, nil
}

func (s stubRoomSvc) Join(ctx context.Context, roomID, name string) (*domain.Participant, error) {
	if s.join != nil {
		return s.join(ctx, roomID, name)
	}
	return &domain.Participant{ID: uuid.NewString(), RoomID: roomID, DisplayName: name, Color: "#ff6b6b"}, nil
}

func (s stubRoomSvc) Get(ctx context.Context, roomID string) (*domain.Room, []domain.Participant, error) {
	if s.get != nil {
		return s.get(ctx, roomID)
	}
	return &domain.Room{ID: roomID, Title: "New room", Status: domain.RoomActive}, nil, nil
}

func (s stubRoomSvc) Files(ctx context.Context, roomID string) ([]domain.RoomFile, error) {
	if s.files != nil {
		return s.files(ctx, roomID)
	}
	return nil, nil
}

type stubPromptSvc struct {
	submit   func(context.Context, string, string, string, string, string) (*domain.PromptEvent, error)
	listPage func(context.Context, string, int, int) ([]domain.PromptEvent, int64, error)
	thinking func(context.Context, string) (*domain.PromptAnalysis, error)
}

func (s stubPromptSvc) Submit(ctx context.Context, roomID, pid, kind, text, payloadURL string) (*domain.PromptEvent, error) {
	if s.submit != nil {
		return s.submit(ctx, roomID, pid, kind, text, payloadURL)
	}
	return &domain.PromptEvent{ID: uuid.NewString(), RoomID: roomID, ParticipantID: pid, Kind: kind, Text: text}, nil
}

func (s stubPromptSvc) ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.PromptEvent, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, roomID, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubPromptSvc) LatestThinking(ctx context.Context, roomID string) (*domain.PromptAnalysis, error) {
	if s.thinking != nil {
		return s.thinking(ctx, roomID)
	}
	return nil, nil
}

type stubFinishSvc struct {
	request func(context.Context, string, string) (*domain.FinishRequest, error)
	approve func(context.Context, string, string) (*domain.FinishRequest, error)
	reject  func(context.Context, string) (*domain.FinishRequest, error)
	latest  func(context.Context, string) (*domain.FinishRequest, error)
	report  func(context.Context, string) ([]byte, error)
}

func (s stubFinishSvc) Request(ctx context.Context, roomID, requesterID string) (*domain.FinishRequest, error) {
	if s.request != nil {
		return s.request(ctx, roomID, requesterID)
	}
	return &domain.FinishRequest{ID: uuid.NewString(), RoomID: roomID, RequesterID: requesterID, Status: domain.FinishPending}, nil
}

func (s stubFinishSvc) Approve(ctx context.Context, roomID, approverID string) (*domain.FinishRequest, error) {
	if s.approve != nil {
		return s.approve(ctx, roomID, approverID)
	}
	return &domain.FinishRequest{ID: uuid.NewString(), RoomID: roomID, ApproverID: approverID, Status: domain.FinishApproved}, nil
}

func (s stubFinishSvc) Reject(ctx context.Context, roomID string) (*domain.FinishRequest, error) {
	if s.reject != nil {
		return s.reject(ctx, roomID)
	}
	return &domain.FinishRequest{ID: uuid.NewString(), RoomID: roomID, Status: domain.FinishRejected}, nil
}

func (s stubFinishSvc) Latest(ctx context.Context, roomID string) (*domain.FinishRequest, error) {
	if s.latest != nil {
		return s.latest(ctx, roomID)
	}
	return nil, nil
}

func (s stubFinishSvc) Report(ctx context.Context, roomID string) ([]byte, error) {
	if s.report != nil {
		return s.report(ctx, roomID)
	}
	return nil, services.ErrNoReport
}

type stubCycle struct {
	run func(context.Context, string) error
}

func (s stubCycle) Run(ctx context.Context, roomID string) error {
	if s.run != nil {
		return s.run(ctx, roomID)
	}
	return nil
}

func newTestHandlers(room stubRoomSvc, prompt stubPromptSvc, finish stubFinishSvc, cycle stubCycle, running func(string) bool) *Handlers {
	return New(room, prompt, finish, cycle, running)
}

// ---------- helpers-only tests ----------

func Test_roomID_and_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// roomID helper rejects non-UUID path params
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	if _, valid := roomID(c); valid {
		t.Fatalf("non-UUID accepted")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-UUID -> %d", w.Code)
	}

	id := uuid.NewString()
	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Params = gin.Params{{Key: "id", Value: id}}
	got, valid := roomID(c2)
	if !valid || got != id {
		t.Fatalf("valid UUID rejected: %q %v", got, valid)
	}

	// clampPagination bounds
	c3, _ := gin.CreateTestContext(httptest.NewRecorder())
	c3.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c3)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}
	c4, _ := gin.CreateTestContext(httptest.NewRecorder())
	c4.Request = httptest.NewRequest("GET", "/?page=&page_size=0", nil)
	p, ps = clampPagination(c4)
	if p != 1 || ps != 1 {
		t.Fatalf("clamp defaults got p=%d ps=%d", p, ps)
	}
}

// ---------- CreateRoom ----------

func TestCreateRoom_BadJSON_Success_Internal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
		r := gin.New()
		r.POST("/rooms", h.CreateRoom)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString("{bad"))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// Success -> 201, title trimmed before the service sees it
	{
		var seen string
		h := newTestHandlers(stubRoomSvc{
			create: func(_ context.Context, title string) (*domain.Room, error) {
				seen = title
				return &domain.Room{ID: uuid.NewString(), Title: title, Status: domain.RoomActive}, nil
			},
		}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
		r := gin.New()
		r.POST("/rooms", h.CreateRoom)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"title":"   Coffee shop  "}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
		}
		if seen != "Coffee shop" {
			t.Fatalf("title not trimmed: %q", seen)
		}
		var out domain.Room
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Title != "Coffee shop" || out.Status != domain.RoomActive {
			t.Fatalf("unexpected room: %#v", out)
		}
	}

	// Internal error -> 500
	{
		h := newTestHandlers(stubRoomSvc{
			create: func(context.Context, string) (*domain.Room, error) {
				return nil, errors.New("boom")
			},
		}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
		r := gin.New()
		r.POST("/rooms", h.CreateRoom)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("internal -> %d", w.Code)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("json: %v", err)
		}
		if er.Code != ErrCodeCreateFailed {
			t.Fatalf("code = %q", er.Code)
		}
	}
}

// ---------- JoinRoom ----------

func TestJoinRoom_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrRoomNotFound, http.StatusNotFound},
		{"finished", services.ErrRoomFinished, http.StatusConflict},
		{"empty name", services.ErrEmptyName, http.StatusBadRequest},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(stubRoomSvc{
				join: func(context.Context, string, string) (*domain.Participant, error) {
					return nil, tc.err
				},
			}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
			r := gin.New()
			r.POST("/rooms/:id/join", h.JoinRoom)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/rooms/"+id+"/join", bytes.NewBufferString(`{"display_name":"alice"}`))
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("%s -> %d want %d", tc.name, w.Code, tc.want)
			}
		})
	}
}

func TestJoinRoom_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	h := newTestHandlers(stubRoomSvc{}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
	r := gin.New()
	r.POST("/rooms/:id/join", h.JoinRoom)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rooms/"+id+"/join", bytes.NewBufferString(`{"display_name":"bob"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("join -> %d body=%s", w.Code, w.Body.String())
	}
	var p domain.Participant
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.DisplayName != "bob" || p.Color == "" {
		t.Fatalf("unexpected participant: %#v", p)
	}

	// Missing display_name -> 400 before the service is called
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/rooms/"+id+"/join", bytes.NewBufferString(`{"display_name":"   "}`))
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("blank name -> %d", w2.Code)
	}
}

// ---------- GetRoom ----------

func TestGetRoom_IncludesFinishState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	parts := []domain.Participant{
		{ID: uuid.NewString(), RoomID: id, DisplayName: "alice", Color: "#ff6b6b"},
		{ID: uuid.NewString(), RoomID: id, DisplayName: "bob", Color: "#4ecdc4"},
	}
	fr := &domain.FinishRequest{ID: uuid.NewString(), RoomID: id, Status: domain.FinishPending}

	h := newTestHandlers(stubRoomSvc{
		get: func(_ context.Context, rid string) (*domain.Room, []domain.Participant, error) {
			return &domain.Room{ID: rid, Title: "Landing Page", Status: domain.RoomActive}, parts, nil
		},
	}, stubPromptSvc{}, stubFinishSvc{
		latest: func(context.Context, string) (*domain.FinishRequest, error) { return fr, nil },
	}, stubCycle{}, nil)
	r := gin.New()
	r.GET("/rooms/:id", h.GetRoom)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/"+id, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d body=%s", w.Code, w.Body.String())
	}
	var out RoomResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Room == nil || out.Room.Title != "Landing Page" {
		t.Fatalf("room missing: %#v", out.Room)
	}
	if len(out.Participants) != 2 {
		t.Fatalf("participants = %d", len(out.Participants))
	}
	if out.Finish == nil || out.Finish.Status != domain.FinishPending {
		t.Fatalf("finish missing: %#v", out.Finish)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(stubRoomSvc{
		get: func(context.Context, string) (*domain.Room, []domain.Participant, error) {
			return nil, nil, services.ErrRoomNotFound
		},
	}, stubPromptSvc{}, stubFinishSvc{}, stubCycle{}, nil)
	r := gin.New()
	r.GET("/rooms/:id", h.GetRoom)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing room -> %d", w.Code)
	}
}
