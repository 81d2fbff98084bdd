package room

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := New()
	doc.CurrentQuestion = 2
	doc.GameStarted = true
	doc.PrimaryAnswers.A = Answers{boolPtr(true), nil, boolPtr(false)}
	doc.PrimaryAnswers.B = Answers{boolPtr(true)}
	doc.GuestNames = []string{"Ann", "Bob"}
	doc.GuestAnswers = map[string]Answers{"Ann": {boolPtr(true)}, "Bob": {}}
	doc.Heartbeats = Heartbeats{PrimaryA: 1000, Admin: 2000, Guests: map[string]int64{"Ann": 3000}}

	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc.MatchCount = 1
	if !reflect.DeepEqual(decoded, doc) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, doc)
	}
}

func TestDecodeFillsDefaults(t *testing.T) {
	doc, err := Decode([]byte(`{"currentQuestionIndex": 3}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.CurrentQuestion != 3 {
		t.Fatalf("expected index 3, got %d", doc.CurrentQuestion)
	}
	if doc.PrimaryAnswers.A == nil || doc.PrimaryAnswers.B == nil || doc.GuestAnswers == nil ||
		doc.GuestNames == nil || doc.Heartbeats.Guests == nil {
		t.Fatalf("expected substructures to be filled, got %+v", doc)
	}
}

func TestDecodeRebuildsBadFields(t *testing.T) {
	doc, err := Decode([]byte(`{"currentQuestionIndex":"two","guestNames":5,"gameStarted":true,"heartbeats":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.CurrentQuestion != 0 || len(doc.GuestNames) != 0 || !doc.GameStarted {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestDecodeKeepsValidGuestEntries(t *testing.T) {
	doc, err := Decode([]byte(`{
		"guestNames": ["Ann", "Bob"],
		"guestAnswers": {"Ann": [true, false, true], "Bob": "oops"},
		"heartbeats": {"guests": {"Ann": 123, "Bob": "x"}}
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Answers{boolPtr(true), boolPtr(false), boolPtr(true)}
	if !reflect.DeepEqual(doc.GuestAnswers["Ann"], want) {
		t.Fatalf("expected Ann's answers to survive, got %v", doc.GuestAnswers["Ann"])
	}
	if got := doc.GuestAnswers["Bob"]; got == nil || len(got) != 0 {
		t.Fatalf("expected Bob's answers reset to empty, got %v", got)
	}
	if doc.Heartbeats.Guests["Ann"] != 123 {
		t.Fatalf("expected Ann's heartbeat to survive, got %v", doc.Heartbeats.Guests)
	}
	if _, ok := doc.Heartbeats.Guests["Bob"]; ok {
		t.Fatalf("expected Bob's bad heartbeat dropped, got %v", doc.Heartbeats.Guests)
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	for _, input := range []string{`null`, `[1,2]`, `"room"`, `{`} {
		_, err := Decode([]byte(input))
		var malformed *MalformedStateError
		if !errors.As(err, &malformed) {
			t.Fatalf("%s: expected malformed state error, got %v", input, err)
		}
	}
}

func TestDecodeIndexKeyedAnswers(t *testing.T) {
	doc, err := Decode([]byte(`{
		"currentQuestionIndex": 2,
		"primaryAnswers": {"primaryA": {"0": true, "2": false}, "primaryB": [true, null, false]}
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.PrimaryAnswers.A.Answered(1) {
		t.Fatalf("expected hole at index 1")
	}
	if value, ok := doc.PrimaryAnswers.A.At(2); !ok || value {
		t.Fatalf("expected false at index 2, got %v/%v", value, ok)
	}
	if doc.MatchCount != 2 {
		t.Fatalf("expected match count recomputed to 2, got %d", doc.MatchCount)
	}
}

func TestNormalizeGuestBookkeeping(t *testing.T) {
	doc := New()
	doc.CurrentQuestion = -4
	doc.GuestNames = []string{"Ann", "", "Ann", "Bob"}
	doc.GuestAnswers = map[string]Answers{"Zed": {boolPtr(true)}, "Cat": {}}

	got := Normalize(doc)
	want := []string{"Ann", "Bob", "Cat", "Zed"}
	if !reflect.DeepEqual(got.GuestNames, want) {
		t.Fatalf("expected names %v, got %v", want, got.GuestNames)
	}
	for _, name := range want {
		if got.GuestAnswers[name] == nil {
			t.Fatalf("expected answer list for %s", name)
		}
	}
	if got.CurrentQuestion != 0 {
		t.Fatalf("expected negative index clamped, got %d", got.CurrentQuestion)
	}
}

func TestApplyFieldsMergesLeaves(t *testing.T) {
	base := New()
	a, err := SubmitAnswer(&base, PrimaryA(), true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	other := New()
	b, err := SubmitAnswer(&other, PrimaryB(), true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	merged, err := New().Apply(append(a, b...)...)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !merged.PrimaryAnswers.A.Answered(0) || !merged.PrimaryAnswers.B.Answered(0) {
		t.Fatalf("expected both answers to survive, got %+v", merged.PrimaryAnswers)
	}
	if merged.MatchCount != 1 {
		t.Fatalf("expected match count 1, got %d", merged.MatchCount)
	}
}

func TestApplyRejectsUnknownPaths(t *testing.T) {
	cases := []Field{
		{Path: "secret", Value: json.RawMessage(`1`)},
		{Path: "primaryAnswers/admin", Value: json.RawMessage(`[]`)},
		{Path: "currentQuestionIndex", Value: json.RawMessage(`"x"`)},
		{Path: "heartbeats/guests/a/b", Value: json.RawMessage(`1`)},
	}
	for _, f := range cases {
		if _, err := New().Apply(f); err == nil {
			t.Fatalf("%s: expected error", f)
		}
	}
	if err := ValidateField(Field{Path: "secret", Value: json.RawMessage(`1`)}); !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected unknown path error, got %v", err)
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	doc := New()
	if _, _, err := RegisterGuest(&doc, "Ann"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := SubmitAnswer(&doc, Guest("Ann"), false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	Heartbeat(&doc, Guest("Ann"), 42)

	leaves := map[string]json.RawMessage{}
	for _, f := range doc.Fields() {
		leaves[f.Path] = f.Value
	}
	leaves["bogus/path"] = json.RawMessage(`true`)

	rebuilt, err := FromFields(leaves)
	if err != nil {
		t.Fatalf("from fields: %v", err)
	}
	if !reflect.DeepEqual(rebuilt, Normalize(doc)) {
		t.Fatalf("mismatch:\n got %+v\nwant %+v", rebuilt, Normalize(doc))
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := New()
	doc.PrimaryAnswers.A = Answers{boolPtr(true)}
	doc.GuestNames = []string{"Ann"}
	doc.GuestAnswers["Ann"] = Answers{boolPtr(false)}

	clone := doc.Clone()
	*clone.PrimaryAnswers.A[0] = false
	clone.GuestNames[0] = "Bob"
	clone.GuestAnswers["Ann"] = nil

	if v, _ := doc.PrimaryAnswers.A.At(0); !v {
		t.Fatalf("clone shares primary answers")
	}
	if doc.GuestNames[0] != "Ann" || doc.GuestAnswers["Ann"] == nil {
		t.Fatalf("clone shares guest data")
	}
}
