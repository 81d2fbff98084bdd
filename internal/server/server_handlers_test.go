package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"
)

func TestHealth(t *testing.T) {
	ts, _, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/healthz", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestQuestions(t *testing.T) {
	ts, _, srv := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/questions", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if int(body["total"].(float64)) != len(srv.questions) {
		t.Fatalf("unexpected total %v", body["total"])
	}
}

func TestGetMissingRoom(t *testing.T) {
	ts, _, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestInvalidRoomCode(t *testing.T) {
	ts, _, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/bad%20code!", nil)
	expectStatus(t, resp, http.StatusBadRequest)
	if body := decodeBody(t, resp); body["error"] != "invalid room code" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestCreateRoomNormalizesCode(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/abcd", nil)
	expectStatus(t, resp, http.StatusOK)

	doc, err := mem.Read(context.Background(), "ABCD")
	if err != nil {
		t.Fatalf("expected room stored under upper-cased code: %v", err)
	}
	if doc.CurrentQuestion != 0 || doc.GameStarted {
		t.Fatalf("expected defaults, got %+v", doc)
	}
}

func TestCreateRoomReplacesMalformed(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	mem.Raw("ABCD", []byte(`"garbage"`))

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/ABCD", nil)
	expectStatus(t, resp, http.StatusOK)
	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestPatchMergesConcurrentClients(t *testing.T) {
	ts, _, _ := newRoomService(t)

	a := room.New()
	fieldsA, _ := room.SubmitAnswer(&a, room.PrimaryA(), true)
	b := room.New()
	fieldsB, _ := room.SubmitAnswer(&b, room.PrimaryB(), true)

	expectStatus(t, doRequest(t, ts, http.MethodPatch, "/api/rooms/ABCD", patchFields(fieldsA...)), http.StatusNoContent)
	expectStatus(t, doRequest(t, ts, http.MethodPatch, "/api/rooms/ABCD", patchFields(fieldsB...)), http.StatusNoContent)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD", nil)
	expectStatus(t, resp, http.StatusOK)
	var doc room.Document
	decodeInto(t, resp, &doc)
	if !doc.PrimaryAnswers.A.Answered(0) || !doc.PrimaryAnswers.B.Answered(0) {
		t.Fatalf("expected both answers, got %+v", doc.PrimaryAnswers)
	}
	if doc.MatchCount != 1 {
		t.Fatalf("expected match count 1, got %d", doc.MatchCount)
	}
}

func TestPatchRejectsBadFields(t *testing.T) {
	ts, _, _ := newRoomService(t)
	cases := []struct {
		name    string
		payload any
		message string
	}{
		{"empty", map[string]any{"fields": []any{}}, "fields are required"},
		{"unknown path", map[string]any{"fields": []any{map[string]any{"path": "admin", "value": 1}}}, "unknown field path"},
		{"bad value", map[string]any{"fields": []any{map[string]any{"path": "currentQuestionIndex", "value": "two"}}}, ""},
		{"null value", map[string]any{"fields": []any{map[string]any{"path": "gameStarted", "value": nil}}}, ""},
	}
	for _, tc := range cases {
		resp := doRequest(t, ts, http.MethodPatch, "/api/rooms/ABCD", tc.payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if tc.message != "" && body["error"] != tc.message {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.message, body["error"])
		}
	}
}

func TestWriteRoomReplacesDocument(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	started := room.New()
	started.GameStarted = true
	started.CurrentQuestion = 5
	if err := mem.Write(context.Background(), "ABCD", started); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := doRequest(t, ts, http.MethodPut, "/api/rooms/ABCD", room.New())
	expectStatus(t, resp, http.StatusOK)

	doc, err := mem.Read(context.Background(), "ABCD")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.GameStarted || doc.CurrentQuestion != 0 {
		t.Fatalf("expected defaults after restart, got %+v", doc)
	}
}

func TestWriteRoomRejectsNonObject(t *testing.T) {
	ts, _, _ := newRoomService(t)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/rooms/ABCD", strings.NewReader(`[1,2]`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestRoomViewForAdmin(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	doc := room.New()
	if _, _, err := room.RegisterGuest(&doc, "Ann"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _ = room.SubmitAnswer(&doc, room.PrimaryA(), true)
	_, _ = room.SubmitAnswer(&doc, room.PrimaryB(), true)
	_, _ = room.SubmitAnswer(&doc, room.Guest("Ann"), true)
	room.Heartbeat(&doc, room.PrimaryA(), room.Millis(testNow)-1000)
	room.Heartbeat(&doc, room.Admin(), room.Millis(testNow))
	if err := mem.Write(context.Background(), "ABCD", doc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD/view?role=admin", nil)
	expectStatus(t, resp, http.StatusOK)
	var view room.View
	decodeInto(t, resp, &view)
	if !view.Connected || view.Admin == nil {
		t.Fatalf("expected connected admin view, got %+v", view)
	}
	if !view.Admin.PrimaryA.Connected || view.Admin.PrimaryB.Connected {
		t.Fatalf("unexpected presence %+v", view.Admin)
	}
	if view.Admin.Reveal == nil || !view.Admin.Reveal.Match {
		t.Fatalf("expected match reveal, got %+v", view.Admin.Reveal)
	}
	if len(view.Admin.Reveal.GuestsMatching) != 1 || view.Admin.Reveal.GuestsMatching[0] != "Ann" {
		t.Fatalf("unexpected matching guests %v", view.Admin.Reveal.GuestsMatching)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD/view?role=guest&name=Ann", nil)
	expectStatus(t, resp, http.StatusOK)
	var guestView room.View
	decodeInto(t, resp, &guestView)
	if guestView.Admin != nil || !guestView.Answered || guestView.Identity != "guest:Ann" {
		t.Fatalf("unexpected guest view %+v", guestView)
	}
}

func TestRoomViewRejectsUnknownRole(t *testing.T) {
	ts, _, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD/view?role=bride", nil)
	expectStatus(t, resp, http.StatusBadRequest)
	if body := decodeBody(t, resp); body["error"] != "unknown role" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestRoomQR(t *testing.T) {
	ts, _, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/ABCD/qr", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected png, got %s", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("expected png signature")
	}
}

func TestDisplayUnknownRoomIsNotStored(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/display/wxyz", nil)
	expectStatus(t, resp, http.StatusOK)
	html, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(html), "Room WXYZ") {
		t.Fatalf("expected room code on display")
	}
	if _, err := mem.Read(context.Background(), "WXYZ"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected display to leave the room unstored, got %v", err)
	}
}

func TestDisplayShowsStoredRoom(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	doc := room.New()
	doc.GuestNames = []string{"Ann"}
	if err := mem.Write(context.Background(), "WXYZ", doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	resp := doRequest(t, ts, http.MethodGet, "/display/WXYZ", nil)
	expectStatus(t, resp, http.StatusOK)
	html, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(html), "Room WXYZ") {
		t.Fatalf("expected room code on display")
	}
}

func TestHomePage(t *testing.T) {
	ts, _, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodGet, "/?room=abcd", nil)
	expectStatus(t, resp, http.StatusOK)
	html, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(html), `value="ABCD"`) {
		t.Fatalf("expected pre-filled room code")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _, _ := newRoomService(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/rooms/ABCD", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://guest.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestPatchRejectsNestedGuestPath(t *testing.T) {
	ts, _, _ := newRoomService(t)
	payload, _ := json.Marshal(map[string]any{"fields": []any{map[string]any{"path": "guestAnswers/a/b", "value": []any{}}}})
	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/api/rooms/ABCD", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestNewRoomGetsFreshCode(t *testing.T) {
	ts, mem, _ := newRoomService(t)
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", nil)
	expectStatus(t, resp, http.StatusCreated)
	var body struct {
		Code string        `json:"code"`
		Room room.Document `json:"room"`
	}
	decodeInto(t, resp, &body)
	if len(body.Code) != codeLength {
		t.Fatalf("unexpected code %q", body.Code)
	}
	if _, err := mem.Read(context.Background(), body.Code); err != nil {
		t.Fatalf("expected room %s to exist: %v", body.Code, err)
	}
}

func TestNewRoomCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newRoomCode()
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		normalized, err := room.NormalizeCode(code)
		if err != nil || normalized != code {
			t.Fatalf("code %q does not survive normalization: %v", code, err)
		}
		if strings.ContainsAny(code, "01IO") {
			t.Fatalf("code %q uses an ambiguous character", code)
		}
	}
}
