package room

import "time"

type Liveness int

const (
	LivenessUnknown Liveness = iota
	LivenessConnected
	LivenessDisconnected
)

func (l Liveness) String() string {
	switch l {
	case LivenessConnected:
		return "connected"
	case LivenessDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Presence evaluates heartbeats at a fixed instant. Nothing is cached:
// callers build a new Presence on every refresh.
type Presence struct {
	Now     time.Time
	Timeout time.Duration
}

// Millis converts t to the heartbeat representation.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// State classifies one heartbeat timestamp.
func (p Presence) State(heartbeat int64) Liveness {
	if heartbeat <= 0 {
		return LivenessUnknown
	}
	if Millis(p.Now)-heartbeat < p.Timeout.Milliseconds() {
		return LivenessConnected
	}
	return LivenessDisconnected
}

func (p Presence) Connected(heartbeat int64) bool {
	return p.State(heartbeat) == LivenessConnected
}

// IsConnected reports liveness of the participant with the given identity.
// For a guest identity without a name it reports the guest pool as a
// whole: connected while at least one guest is.
func (p Presence) IsConnected(d Document, id Identity) bool {
	switch id.Role {
	case RolePrimaryA:
		return p.Connected(d.Heartbeats.PrimaryA)
	case RolePrimaryB:
		return p.Connected(d.Heartbeats.PrimaryB)
	case RoleAdmin:
		return p.Connected(d.Heartbeats.Admin)
	case RoleGuest:
		if id.GuestName != "" {
			return p.Connected(d.Heartbeats.Guests[id.GuestName])
		}
		return p.ConnectedGuests(d) > 0
	}
	return false
}

func (p Presence) ConnectedGuests(d Document) int {
	count := 0
	for _, ts := range d.Heartbeats.Guests {
		if p.Connected(ts) {
			count++
		}
	}
	return count
}

// AnsweredGuests counts registered guests holding an answer for the
// current question.
func AnsweredGuests(d Document) int {
	count := 0
	for _, name := range d.GuestNames {
		if d.GuestAnswers[name].Answered(d.CurrentQuestion) {
			count++
		}
	}
	return count
}
