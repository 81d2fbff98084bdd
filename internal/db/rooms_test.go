package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/donok1/wedding-quiz/internal/config"
	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Fatalf("expected nil error to not be unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("expected wrapped unique violation to be recognized")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatalf("expected non-unique pg error to be rejected")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatalf("expected generic error to be rejected")
	}
}

func TestTextArray(t *testing.T) {
	cases := map[string][]string{
		`{"currentQuestionIndex"}`:           {"currentQuestionIndex"},
		`{"heartbeats","guests","Ann Lee"}`:  {"heartbeats", "guests", "Ann Lee"},
		`{"guestAnswers","say \"hi\", \\o"}`: {"guestAnswers", `say "hi", \o`},
	}
	for want, parts := range cases {
		if got := textArray(parts); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestEnsureInsertsWithoutConflictError(t *testing.T) {
	conn, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=quiz dbname=quiz"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open dry run: %v", err)
	}
	s := NewRoomStore(conn)
	stmt := s.ensure(conn.Session(&gorm.Session{}), "ABCD").Statement
	sql := stmt.SQL.String()
	if !strings.Contains(sql, "INSERT INTO") || !strings.Contains(sql, "ON CONFLICT") || !strings.Contains(sql, "DO NOTHING") {
		t.Fatalf("expected insert that ignores existing rooms, got %s", sql)
	}
}

func openTestStore(t *testing.T) *RoomStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}
	cfg := config.Default()
	cfg.DatabaseURL = dsn
	conn, err := Open(cfg)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRoomStore(conn)
}

func testCode() string {
	return fmt.Sprintf("T%d", time.Now().UnixNano()%1_000_000_000)
}

func TestRoomStorePatchMergesLeaves(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	code := testCode()

	if _, err := s.Read(ctx, code); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	a := room.New()
	fieldsA, err := room.SubmitAnswer(&a, room.PrimaryA(), true)
	if err != nil {
		t.Fatalf("submit A: %v", err)
	}
	b := room.New()
	fieldsB, err := room.SubmitAnswer(&b, room.PrimaryB(), true)
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}
	hb, _ := room.Heartbeat(&b, room.Guest("Ann Lee"), 1234)

	if err := s.Patch(ctx, code, fieldsA...); err != nil {
		t.Fatalf("patch A: %v", err)
	}
	if err := s.Patch(ctx, code, append(fieldsB, hb)...); err != nil {
		t.Fatalf("patch B: %v", err)
	}

	doc, err := s.Read(ctx, code)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !doc.PrimaryAnswers.A.Answered(0) || !doc.PrimaryAnswers.B.Answered(0) {
		t.Fatalf("expected both answers to survive, got %+v", doc.PrimaryAnswers)
	}
	if doc.MatchCount != 1 {
		t.Fatalf("expected match count 1, got %d", doc.MatchCount)
	}
	if doc.Heartbeats.Guests["Ann Lee"] != 1234 {
		t.Fatalf("expected guest heartbeat, got %+v", doc.Heartbeats)
	}
}

func TestRoomStorePatchKeepsExistingRoom(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	code := testCode()

	existing := room.New()
	existing.CurrentQuestion = 2
	if err := s.Write(ctx, code, existing); err != nil {
		t.Fatalf("write: %v", err)
	}
	beat, _ := room.Heartbeat(&existing, room.Admin(), 42)
	for i := 0; i < 2; i++ {
		if err := s.Patch(ctx, code, beat); err != nil {
			t.Fatalf("patch %d: %v", i, err)
		}
	}
	doc, err := s.Read(ctx, code)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.CurrentQuestion != 2 || doc.Heartbeats.Admin != 42 {
		t.Fatalf("expected patch on the existing room, got %+v", doc)
	}
}

func TestRoomStoreCreateRepairsMalformed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	code := testCode()

	if err := s.db.Create(&Room{Code: code, Document: []byte(`[1,2,3]`)}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Read(ctx, code); !errors.Is(err, store.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	doc, err := s.Create(ctx, code, room.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.CurrentQuestion != 0 {
		t.Fatalf("expected defaults, got %+v", doc)
	}

	existing := room.New()
	existing.CurrentQuestion = 3
	if err := s.Write(ctx, code, existing); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err = s.Create(ctx, code, room.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.CurrentQuestion != 3 {
		t.Fatalf("expected existing document to win, got %d", doc.CurrentQuestion)
	}
}
