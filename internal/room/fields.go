package room

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	PathCurrentQuestion = "currentQuestionIndex"
	PathMatchCount      = "matchCount"
	PathGameStarted     = "gameStarted"
	PathGameCompleted   = "gameCompleted"
	PathGuestNames      = "guestNames"
	PathPrimaryAnswers  = "primaryAnswers"
	PathGuestAnswers    = "guestAnswers"
	PathHeartbeats      = "heartbeats"
	PathGuestHeartbeats = "heartbeats/guests"
)

// Field is one leaf of a document addressed by a slash-separated path,
// carrying the JSON encoding of its value. Fields are the unit of
// targeted writes: concurrent writers touching different leaves never
// overwrite each other, and the last writer of a leaf wins.
type Field struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

func newField(path string, value any) Field {
	data, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("room: encode field %s: %v", path, err))
	}
	return Field{Path: path, Value: data}
}

func (f Field) String() string {
	return f.Path + "=" + string(f.Value)
}

// Segments splits the path into its components.
func (f Field) Segments() []string {
	return strings.Split(f.Path, "/")
}

// Fields flattens d into its leaves, in a stable order.
func (d Document) Fields() []Field {
	d = Normalize(d)
	fields := []Field{
		newField(PathCurrentQuestion, d.CurrentQuestion),
		newField(PathMatchCount, d.MatchCount),
		newField(PathGameStarted, d.GameStarted),
		newField(PathGameCompleted, d.GameCompleted),
		newField(PathGuestNames, d.GuestNames),
		newField(primaryAnswersPath(RolePrimaryA), d.PrimaryAnswers.A),
		newField(primaryAnswersPath(RolePrimaryB), d.PrimaryAnswers.B),
		newField(heartbeatPath(RolePrimaryA), d.Heartbeats.PrimaryA),
		newField(heartbeatPath(RolePrimaryB), d.Heartbeats.PrimaryB),
		newField(heartbeatPath(RoleAdmin), d.Heartbeats.Admin),
	}
	for _, name := range d.GuestNames {
		fields = append(fields, newField(guestAnswersPath(name), d.GuestAnswers[name]))
	}
	guests := make([]string, 0, len(d.Heartbeats.Guests))
	for name := range d.Heartbeats.Guests {
		guests = append(guests, name)
	}
	sort.Strings(guests)
	for _, name := range guests {
		fields = append(fields, newField(guestHeartbeatPath(name), d.Heartbeats.Guests[name]))
	}
	return fields
}

// Apply returns d with every field written over it in order. Fields are
// checked with ValidateField first; the result is normalized.
func (d Document) Apply(fields ...Field) (Document, error) {
	for _, f := range fields {
		if err := ValidateField(f); err != nil {
			return Document{}, err
		}
	}
	tree, err := toTree(Normalize(d))
	if err != nil {
		return Document{}, err
	}
	for _, f := range fields {
		setPath(tree, f.Segments(), f.Value)
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return Document{}, err
	}
	return Decode(data)
}

// FromFields rebuilds a document from leaves, as stored by backends that
// keep one entry per field. Invalid leaves are skipped so that one bad
// entry cannot poison the room.
func FromFields(fields map[string]json.RawMessage) (Document, error) {
	tree := map[string]any{}
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		f := Field{Path: path, Value: fields[path]}
		if ValidateField(f) != nil {
			continue
		}
		setPath(tree, f.Segments(), f.Value)
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return Document{}, err
	}
	return Decode(data)
}

// KnownPath reports whether path addresses a document leaf.
func KnownPath(path string) bool {
	return leafValue(strings.Split(path, "/")) != nil
}

// ValidateField checks that f addresses a known leaf and that its value
// has the shape of that leaf.
func ValidateField(f Field) error {
	dest := leafValue(f.Segments())
	if dest == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPath, f.Path)
	}
	if value := strings.TrimSpace(string(f.Value)); value == "" || value == "null" {
		return fmt.Errorf("field %s: value is required", f.Path)
	}
	if err := json.Unmarshal(f.Value, dest); err != nil {
		return fmt.Errorf("field %s: %w", f.Path, err)
	}
	return nil
}

// leafValue returns a pointer to a zero value of the leaf's type, or nil
// when parts address no leaf.
func leafValue(parts []string) any {
	switch {
	case len(parts) == 1 && (parts[0] == PathCurrentQuestion || parts[0] == PathMatchCount):
		return new(int)
	case len(parts) == 1 && (parts[0] == PathGameStarted || parts[0] == PathGameCompleted):
		return new(bool)
	case len(parts) == 1 && parts[0] == PathGuestNames:
		return new([]string)
	case len(parts) == 2 && parts[0] == PathPrimaryAnswers && isPrimaryRole(parts[1]):
		return new(Answers)
	case len(parts) == 2 && parts[0] == PathGuestAnswers && validSegment(parts[1]):
		return new(Answers)
	case len(parts) == 2 && parts[0] == PathHeartbeats && (isPrimaryRole(parts[1]) || parts[1] == string(RoleAdmin)):
		return new(int64)
	case len(parts) == 3 && parts[0] == PathHeartbeats && parts[1] == "guests" && validSegment(parts[2]):
		return new(int64)
	}
	return nil
}

func isPrimaryRole(segment string) bool {
	return segment == string(RolePrimaryA) || segment == string(RolePrimaryB)
}

func validSegment(segment string) bool {
	name, err := NormalizeGuestName(segment)
	return err == nil && name == segment
}

func primaryAnswersPath(role Role) string {
	return PathPrimaryAnswers + "/" + string(role)
}

func guestAnswersPath(name string) string {
	return PathGuestAnswers + "/" + name
}

func heartbeatPath(role Role) string {
	return PathHeartbeats + "/" + string(role)
}

func guestHeartbeatPath(name string) string {
	return PathGuestHeartbeats + "/" + name
}

func toTree(d Document) (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func setPath(tree map[string]any, parts []string, value json.RawMessage) {
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}
