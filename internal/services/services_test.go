package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"
	"github.com/vibedeux/go-room-backend/internal/report"
)

// ---------- helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedRoom(t *testing.T, db *gorm.DB) *domain.Room {
	t.Helper()
	room, err := repo.CreateRoom(context.Background(), db, "New room")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func join(t *testing.T, svc *RoomService, roomID, name string) *domain.Participant {
	t.Helper()
	p, err := svc.Join(context.Background(), roomID, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return p
}

// stubReports is a hand-written fake for the report generator.
type stubReports struct {
	calls int
	err   error
}

func (s *stubReports) Generate(context.Context, string) (*report.Report, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &report.Report{
		Collaboration: report.Collaboration{Score: 87},
	}, nil
}

// ---------- RoomService ----------

func TestRoomCreateNormalizesTitle(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoomService(db)

	room, err := svc.Create(context.Background(), "  my   vibe\troom  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if room.Title != "my vibe room" {
		t.Fatalf("title = %q", room.Title)
	}

	blank, err := svc.Create(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Create blank: %v", err)
	}
	if blank.Title != "New room" {
		t.Fatalf("blank title = %q", blank.Title)
	}
}

func TestRoomCreateClipsLongTitle(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoomService(db)

	room, err := svc.Create(context.Background(), strings.Repeat("x", 200))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := len([]rune(room.Title)); got != 60 {
		t.Fatalf("title runes = %d, want 60", got)
	}
}

func TestJoinAssignsPaletteColors(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoomService(db)
	room := seedRoom(t, db)

	names := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	for i, name := range names {
		p := join(t, svc, room.ID, name)
		want := participantColors[i%len(participantColors)]
		if p.Color != want {
			t.Fatalf("participant %d color = %q, want %q", i, p.Color, want)
		}
	}
}

func TestJoinValidations(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoomService(db)
	room := seedRoom(t, db)

	if _, err := svc.Join(context.Background(), "nope", "alice"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("unknown room err = %v", err)
	}
	if _, err := svc.Join(context.Background(), room.ID, "   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("blank name err = %v", err)
	}

	if err := repo.MarkRoomFinished(context.Background(), db, room.ID); err != nil {
		t.Fatalf("finish room: %v", err)
	}
	if _, err := svc.Join(context.Background(), room.ID, "late"); !errors.Is(err, ErrRoomFinished) {
		t.Fatalf("finished room err = %v", err)
	}
}

func TestGetReturnsParticipants(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoomService(db)
	room := seedRoom(t, db)
	join(t, svc, room.ID, "alice")
	join(t, svc, room.ID, "bob")

	got, members, err := svc.Get(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != room.ID {
		t.Fatalf("room id = %q", got.ID)
	}
	if len(members) != 2 {
		t.Fatalf("participants = %d, want 2", len(members))
	}

	if _, _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("unknown room err = %v", err)
	}
}

// ---------- PromptService ----------

func TestSubmitPersistsAndNotifies(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")

	var notified []string
	svc := &PromptService{DB: db, Notify: func(roomID string) { notified = append(notified, roomID) }}

	ev, err := svc.Submit(context.Background(), room.ID, alice.ID, domain.KindText, "  dark   mode please ", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ev.Text != "dark   mode please" {
		t.Fatalf("text = %q", ev.Text)
	}
	if len(notified) != 1 || notified[0] != room.ID {
		t.Fatalf("notified = %v", notified)
	}

	events, total, err := svc.ListPage(context.Background(), room.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("total=%d len=%d", total, len(events))
	}
}

func TestSubmitValidation(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")

	svc := &PromptService{DB: db, MaxPromptRunes: 10}
	ctx := context.Background()

	cases := []struct {
		name        string
		roomID, pid string
		kind, text  string
		payloadURL  string
		want        error
	}{
		{"unknown room", "nope", alice.ID, domain.KindText, "hi", "", ErrRoomNotFound},
		{"unknown participant", room.ID, "nope", domain.KindText, "hi", "", ErrParticipantNotFound},
		{"empty text", room.ID, alice.ID, domain.KindText, "   ", "", ErrEmptyPrompt},
		{"too long", room.ID, alice.ID, domain.KindText, strings.Repeat("a", 11), "", ErrTooLong},
		{"unknown kind", room.ID, alice.ID, "video", "hi", "", ErrInvalidKind},
		{"image without payload", room.ID, alice.ID, domain.KindImage, "", "", ErrInvalidKind},
	}
	for _, tc := range cases {
		if _, err := svc.Submit(ctx, tc.roomID, tc.pid, tc.kind, tc.text, tc.payloadURL); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	if _, err := svc.Submit(ctx, room.ID, alice.ID, domain.KindImage, "", "https://cdn.example/mood.png"); err != nil {
		t.Fatalf("image with payload: %v", err)
	}
}

func TestSubmitRejectedWhenRoomFinished(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")
	if err := repo.MarkRoomFinished(context.Background(), db, room.ID); err != nil {
		t.Fatalf("finish room: %v", err)
	}

	svc := &PromptService{DB: db}
	if _, err := svc.Submit(context.Background(), room.ID, alice.ID, domain.KindText, "late idea", ""); !errors.Is(err, ErrRoomFinished) {
		t.Fatalf("err = %v, want ErrRoomFinished", err)
	}
}

func TestSubmitAutoTitlesRoomFromFirstPrompt(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")

	svc := &PromptService{DB: db}
	if _, err := svc.Submit(context.Background(), room.ID, alice.ID, domain.KindText, "a landing page for the coffee shop", ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := repo.GetRoom(context.Background(), db, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Title != "Landing Page Coffee Shop" {
		t.Fatalf("title = %q", got.Title)
	}

	// A second prompt must not retitle.
	if _, err := svc.Submit(context.Background(), room.ID, alice.ID, domain.KindText, "make it neon", ""); err != nil {
		t.Fatalf("Submit 2: %v", err)
	}
	again, _ := repo.GetRoom(context.Background(), db, room.ID)
	if again.Title != got.Title {
		t.Fatalf("title changed to %q", again.Title)
	}
}

func TestLatestThinkingReturnsMostRecentAnalysis(t *testing.T) {
	db := newTestDB(t)
	room := seedRoom(t, db)
	svc := &PromptService{DB: db}
	ctx := context.Background()

	// Nothing analyzed yet: nil without error.
	got, err := svc.LatestThinking(ctx, room.ID)
	if err != nil || got != nil {
		t.Fatalf("empty room: %v, %v", got, err)
	}

	if _, err := repo.CreateAnalysis(ctx, db, room.ID, nil, domain.AnalysisResult{}, "first pass"); err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	second, err := repo.CreateAnalysis(ctx, db, room.ID, nil, domain.AnalysisResult{}, "second pass")
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}

	got, err = svc.LatestThinking(ctx, room.ID)
	if err != nil {
		t.Fatalf("LatestThinking: %v", err)
	}
	if got == nil || got.ID != second.ID || got.ThinkingTrace != "second pass" {
		t.Fatalf("latest = %#v", got)
	}

	if _, err := svc.LatestThinking(ctx, uuid.NewString()); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("unknown room err = %v", err)
	}
}

// ---------- FinishService ----------

func TestDetectFinishIntent(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"I think we're done here", true},
		{"let's finish this up", true},
		{"can we wrap up now?", true},
		{"FINALIZE the page please", true},
		{"end this session", true},
		{"make the header blue", false},
		{"the unfinished section needs work", false}, // whole words only
		{"add an endless scroll", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DetectFinishIntent(tc.text); got != tc.want {
			t.Fatalf("DetectFinishIntent(%q) = %v want %v", tc.text, got, tc.want)
		}
	}
}

func TestFinishRequestOncePerRoom(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")
	bob := join(t, rooms, room.ID, "bob")

	svc := &FinishService{DB: db, Reports: &stubReports{}}
	ctx := context.Background()

	fr, err := svc.Request(ctx, room.ID, alice.ID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if fr.Status != domain.FinishPending {
		t.Fatalf("status = %q", fr.Status)
	}

	if _, err := svc.Request(ctx, room.ID, bob.ID); !errors.Is(err, ErrFinishExists) {
		t.Fatalf("second request err = %v", err)
	}
}

func TestFinishRejectIsTerminal(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")

	svc := &FinishService{DB: db, Reports: &stubReports{}}
	ctx := context.Background()

	if _, err := svc.Request(ctx, room.ID, alice.ID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	fr, err := svc.Reject(ctx, room.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if fr.Status != domain.FinishRejected {
		t.Fatalf("status = %q", fr.Status)
	}

	// Rejected is terminal for the room: no re-request, nothing to approve.
	if _, err := svc.Request(ctx, room.ID, alice.ID); !errors.Is(err, ErrFinishExists) {
		t.Fatalf("re-request err = %v", err)
	}
	if _, err := svc.Approve(ctx, room.ID, alice.ID); !errors.Is(err, ErrNoPendingFinish) {
		t.Fatalf("approve after reject err = %v", err)
	}

	room2, _ := repo.GetRoom(ctx, db, room.ID)
	if room2.Status != domain.RoomActive {
		t.Fatalf("room status = %q, want active", room2.Status)
	}
}

func TestFinishSelfApprovalForbidden(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")

	reports := &stubReports{}
	svc := &FinishService{DB: db, Reports: reports}
	ctx := context.Background()

	if _, err := svc.Request(ctx, room.ID, alice.ID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := svc.Approve(ctx, room.ID, alice.ID); !errors.Is(err, ErrSelfApproval) {
		t.Fatalf("self approve err = %v", err)
	}
	if reports.calls != 0 {
		t.Fatalf("report generated %d times on rejected approval", reports.calls)
	}
}

func TestFinishApproveStoresReportAndFinishesRoom(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")
	bob := join(t, rooms, room.ID, "bob")

	reports := &stubReports{}
	svc := &FinishService{DB: db, Reports: reports}
	ctx := context.Background()

	if _, err := svc.Request(ctx, room.ID, alice.ID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	fr, err := svc.Approve(ctx, room.ID, bob.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if fr.Status != domain.FinishApproved || fr.ApproverID != bob.ID {
		t.Fatalf("request = %+v", fr)
	}
	if reports.calls != 1 {
		t.Fatalf("report calls = %d", reports.calls)
	}

	room2, _ := repo.GetRoom(ctx, db, room.ID)
	if room2.Status != domain.RoomFinished {
		t.Fatalf("room status = %q", room2.Status)
	}

	raw, err := svc.Report(ctx, room.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	var rep report.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Collaboration.Score != 87 {
		t.Fatalf("score = %d", rep.Collaboration.Score)
	}
}

func TestFinishApproveFailsWhenReportFails(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")
	bob := join(t, rooms, room.ID, "bob")

	svc := &FinishService{DB: db, Reports: &stubReports{err: errors.New("boom")}}
	ctx := context.Background()

	if _, err := svc.Request(ctx, room.ID, alice.ID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := svc.Approve(ctx, room.ID, bob.ID); err == nil {
		t.Fatal("Approve succeeded despite report failure")
	}

	// The request must stay pending and the room active.
	pending, err := repo.PendingFinishRequest(ctx, db, room.ID)
	if err != nil || pending == nil {
		t.Fatalf("pending = %v, err = %v", pending, err)
	}
	room2, _ := repo.GetRoom(ctx, db, room.ID)
	if room2.Status != domain.RoomActive {
		t.Fatalf("room status = %q", room2.Status)
	}
}

func TestReportUnavailableBeforeApproval(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomService(db)
	room := seedRoom(t, db)
	alice := join(t, rooms, room.ID, "alice")

	svc := &FinishService{DB: db, Reports: &stubReports{}}
	ctx := context.Background()

	if _, err := svc.Report(ctx, room.ID); !errors.Is(err, ErrNoReport) {
		t.Fatalf("no workflow err = %v", err)
	}
	if _, err := svc.Request(ctx, room.ID, alice.ID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := svc.Report(ctx, room.ID); !errors.Is(err, ErrNoReport) {
		t.Fatalf("pending err = %v", err)
	}
}
