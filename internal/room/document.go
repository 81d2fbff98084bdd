package room

import (
	"encoding/json"
	"fmt"
	"sort"
)

// maxAnswerIndex bounds index-keyed answer objects so a hostile payload
// cannot allocate an enormous slice.
const maxAnswerIndex = 1024

// Document is the shared state of one room. It is the only thing clients
// exchange through the store.
type Document struct {
	CurrentQuestion int                `json:"currentQuestionIndex"`
	PrimaryAnswers  PrimaryAnswers     `json:"primaryAnswers"`
	GuestAnswers    map[string]Answers `json:"guestAnswers"`
	GuestNames      []string           `json:"guestNames"`
	MatchCount      int                `json:"matchCount"`
	GameStarted     bool               `json:"gameStarted"`
	GameCompleted   bool               `json:"gameCompleted"`
	Heartbeats      Heartbeats         `json:"heartbeats"`
}

type PrimaryAnswers struct {
	A Answers `json:"primaryA"`
	B Answers `json:"primaryB"`
}

// Heartbeats holds the last heartbeat per participant as Unix
// milliseconds. Zero means no heartbeat was ever recorded.
type Heartbeats struct {
	PrimaryA int64            `json:"primaryA"`
	PrimaryB int64            `json:"primaryB"`
	Admin    int64            `json:"admin"`
	Guests   map[string]int64 `json:"guests"`
}

// New returns the default document for a freshly created room.
func New() Document {
	return Document{
		PrimaryAnswers: PrimaryAnswers{A: Answers{}, B: Answers{}},
		GuestAnswers:   map[string]Answers{},
		GuestNames:     []string{},
		Heartbeats:     Heartbeats{Guests: map[string]int64{}},
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.PrimaryAnswers = PrimaryAnswers{A: d.PrimaryAnswers.A.clone(), B: d.PrimaryAnswers.B.clone()}
	out.GuestAnswers = make(map[string]Answers, len(d.GuestAnswers))
	for name, answers := range d.GuestAnswers {
		out.GuestAnswers[name] = answers.clone()
	}
	out.GuestNames = append([]string{}, d.GuestNames...)
	out.Heartbeats.Guests = make(map[string]int64, len(d.Heartbeats.Guests))
	for name, ts := range d.Heartbeats.Guests {
		out.Heartbeats.Guests[name] = ts
	}
	return out
}

// HasGuest reports whether name is registered in the room.
func (d Document) HasGuest(name string) bool {
	for _, existing := range d.GuestNames {
		if existing == name {
			return true
		}
	}
	return false
}

// Encode serializes d in its persisted form.
func Encode(d Document) ([]byte, error) {
	return json.Marshal(Normalize(d))
}

// Decode parses a persisted document. Each top-level field is decoded on
// its own; a field that is missing or has the wrong shape is rebuilt from
// defaults instead of failing the whole document. Only input that is not
// a JSON object at all is reported as malformed.
func Decode(data []byte) (Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Document{}, &MalformedStateError{Err: err}
	}
	if fields == nil {
		return Document{}, &MalformedStateError{Err: fmt.Errorf("document is null")}
	}
	doc := New()
	decodeField(fields, "currentQuestionIndex", &doc.CurrentQuestion)
	decodeField(fields, "matchCount", &doc.MatchCount)
	decodeField(fields, "gameStarted", &doc.GameStarted)
	decodeField(fields, "gameCompleted", &doc.GameCompleted)
	decodeField(fields, "guestNames", &doc.GuestNames)
	decodeEntries(fields, "guestAnswers", doc.GuestAnswers)

	if raw, ok := fields["primaryAnswers"]; ok {
		var primary map[string]json.RawMessage
		if json.Unmarshal(raw, &primary) == nil {
			decodeField(primary, string(RolePrimaryA), &doc.PrimaryAnswers.A)
			decodeField(primary, string(RolePrimaryB), &doc.PrimaryAnswers.B)
		}
	}
	if raw, ok := fields["heartbeats"]; ok {
		var beats map[string]json.RawMessage
		if json.Unmarshal(raw, &beats) == nil {
			decodeField(beats, string(RolePrimaryA), &doc.Heartbeats.PrimaryA)
			decodeField(beats, string(RolePrimaryB), &doc.Heartbeats.PrimaryB)
			decodeField(beats, string(RoleAdmin), &doc.Heartbeats.Admin)
			decodeEntries(beats, "guests", doc.Heartbeats.Guests)
		}
	}
	return Normalize(doc), nil
}

func decodeField[T any](fields map[string]json.RawMessage, key string, dest *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return
	}
	*dest = value
}

// decodeEntries decodes a name-keyed object entry by entry into dest. An
// entry with the wrong shape is skipped and the rest are kept.
func decodeEntries[T any](fields map[string]json.RawMessage, key string, dest map[string]T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return
	}
	for name := range entries {
		var value T
		if err := json.Unmarshal(entries[name], &value); err != nil {
			continue
		}
		dest[name] = value
	}
}

// Normalize rebuilds every invariant of d: substructures exist, the index
// is non-negative, guest names are unique and each has an answer list,
// names that only appear in guestAnswers are re-registered in sorted order,
// and matchCount is recomputed from the primary answers.
func Normalize(d Document) Document {
	if d.CurrentQuestion < 0 {
		d.CurrentQuestion = 0
	}
	if d.PrimaryAnswers.A == nil {
		d.PrimaryAnswers.A = Answers{}
	}
	if d.PrimaryAnswers.B == nil {
		d.PrimaryAnswers.B = Answers{}
	}
	if d.GuestAnswers == nil {
		d.GuestAnswers = map[string]Answers{}
	}
	if d.Heartbeats.Guests == nil {
		d.Heartbeats.Guests = map[string]int64{}
	}

	seen := make(map[string]struct{}, len(d.GuestNames))
	names := make([]string, 0, len(d.GuestNames))
	for _, name := range d.GuestNames {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	orphans := make([]string, 0)
	for name := range d.GuestAnswers {
		if _, ok := seen[name]; !ok && name != "" {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	names = append(names, orphans...)
	for _, name := range names {
		if d.GuestAnswers[name] == nil {
			d.GuestAnswers[name] = Answers{}
		}
	}
	delete(d.GuestAnswers, "")
	d.GuestNames = names

	d.MatchCount = CountMatches(d)
	return d
}
