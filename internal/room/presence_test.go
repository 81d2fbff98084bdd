package room

import (
	"testing"
	"time"
)

func TestPresenceBoundary(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	p := Presence{Now: now, Timeout: 8 * time.Second}
	nowMs := Millis(now)

	cases := []struct {
		name      string
		heartbeat int64
		want      Liveness
	}{
		{"never", 0, LivenessUnknown},
		{"fresh", nowMs, LivenessConnected},
		{"just inside", nowMs - 8000 + 1, LivenessConnected},
		{"at timeout", nowMs - 8000, LivenessDisconnected},
		{"just outside", nowMs - 8000 - 1, LivenessDisconnected},
	}
	for _, tc := range cases {
		if got := p.State(tc.heartbeat); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestPresenceGuestPool(t *testing.T) {
	now := time.UnixMilli(50_000)
	p := Presence{Now: now, Timeout: 8 * time.Second}
	doc := New()
	doc.Heartbeats.Guests = map[string]int64{"Ann": 49_000, "Bob": 10_000}

	if got := p.ConnectedGuests(doc); got != 1 {
		t.Fatalf("expected 1 connected guest, got %d", got)
	}
	if !p.IsConnected(doc, Guest("")) {
		t.Fatalf("expected guest pool connected")
	}
	if p.IsConnected(doc, Guest("Bob")) {
		t.Fatalf("expected Bob disconnected")
	}
	if p.IsConnected(doc, PrimaryA()) {
		t.Fatalf("expected primaryA unknown, not connected")
	}
}

func TestHeartbeatWritesOwnSlot(t *testing.T) {
	doc := New()
	f, ok := Heartbeat(&doc, Admin(), 1234)
	if !ok || f.Path != "heartbeats/admin" || string(f.Value) != "1234" {
		t.Fatalf("unexpected field %v (%v)", f, ok)
	}
	f, ok = Heartbeat(&doc, Guest("Ann"), 99)
	if !ok || f.Path != "heartbeats/guests/Ann" {
		t.Fatalf("unexpected field %v (%v)", f, ok)
	}
	if _, ok := Heartbeat(&doc, Guest(""), 1); ok {
		t.Fatalf("expected unnamed guest to have no heartbeat slot")
	}
}
