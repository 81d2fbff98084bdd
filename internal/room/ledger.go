package room

// slot is where one participant writes. It is looked up once per
// operation from the caller's identity.
type slot struct {
	answersPath   string
	heartbeatPath string
	answers       func(d *Document) Answers
	setAnswers    func(d *Document, a Answers)
	setHeartbeat  func(d *Document, ms int64)
}

func slotFor(id Identity) (slot, bool) {
	switch id.Role {
	case RolePrimaryA:
		return slot{
			answersPath:   primaryAnswersPath(RolePrimaryA),
			heartbeatPath: heartbeatPath(RolePrimaryA),
			answers:       func(d *Document) Answers { return d.PrimaryAnswers.A },
			setAnswers:    func(d *Document, a Answers) { d.PrimaryAnswers.A = a },
			setHeartbeat:  func(d *Document, ms int64) { d.Heartbeats.PrimaryA = ms },
		}, true
	case RolePrimaryB:
		return slot{
			answersPath:   primaryAnswersPath(RolePrimaryB),
			heartbeatPath: heartbeatPath(RolePrimaryB),
			answers:       func(d *Document) Answers { return d.PrimaryAnswers.B },
			setAnswers:    func(d *Document, a Answers) { d.PrimaryAnswers.B = a },
			setHeartbeat:  func(d *Document, ms int64) { d.Heartbeats.PrimaryB = ms },
		}, true
	case RoleAdmin:
		return slot{
			heartbeatPath: heartbeatPath(RoleAdmin),
			setHeartbeat:  func(d *Document, ms int64) { d.Heartbeats.Admin = ms },
		}, true
	case RoleGuest:
		if id.GuestName == "" {
			return slot{}, false
		}
		name := id.GuestName
		return slot{
			answersPath:   guestAnswersPath(name),
			heartbeatPath: guestHeartbeatPath(name),
			answers:       func(d *Document) Answers { return d.GuestAnswers[name] },
			setAnswers:    func(d *Document, a Answers) { d.GuestAnswers[name] = a },
			setHeartbeat:  func(d *Document, ms int64) { d.Heartbeats.Guests[name] = ms },
		}, true
	}
	return slot{}, false
}

// CountMatches counts indices up to the current question where both
// primaries answered and agreed. It always scans from zero so the result
// does not depend on the order answers arrived in.
func CountMatches(d Document) int {
	count := 0
	for i := 0; i <= d.CurrentQuestion; i++ {
		a, okA := d.PrimaryAnswers.A.At(i)
		b, okB := d.PrimaryAnswers.B.At(i)
		if okA && okB && a == b {
			count++
		}
	}
	return count
}

// SubmitAnswer records answer for the current question in the caller's
// own slot and returns the leaves that changed. A repeated submission
// overwrites the earlier one.
func SubmitAnswer(d *Document, id Identity, answer bool) ([]Field, error) {
	s, ok := slotFor(id)
	if !ok || s.answers == nil {
		return nil, ErrNotAllowed
	}
	if d.GameCompleted {
		return nil, ErrGameCompleted
	}
	if id.Role == RoleGuest && !d.HasGuest(id.GuestName) {
		return nil, ErrNotAllowed
	}
	index := d.CurrentQuestion
	s.setAnswers(d, s.answers(d).With(index, answer))
	fields := []Field{newField(s.answersPath, s.answers(d))}

	if d.PrimaryAnswers.A.Answered(index) && d.PrimaryAnswers.B.Answered(index) {
		d.MatchCount = CountMatches(*d)
		fields = append(fields, newField(PathMatchCount, d.MatchCount))
	}
	return fields, nil
}

// AdvanceQuestion moves the room to the next question, completing the game
// once total is reached. It never moves backwards and does nothing once
// the game is completed.
func AdvanceQuestion(d *Document, total int) []Field {
	if d.GameCompleted {
		return nil
	}
	d.CurrentQuestion++
	d.MatchCount = CountMatches(*d)
	fields := []Field{
		newField(PathCurrentQuestion, d.CurrentQuestion),
		newField(PathMatchCount, d.MatchCount),
	}
	if d.CurrentQuestion >= total {
		d.GameCompleted = true
		fields = append(fields, newField(PathGameCompleted, true))
	}
	return fields
}

// StartGame marks the game as started. It returns no fields when the game
// was already started.
func StartGame(d *Document) []Field {
	if d.GameStarted {
		return nil
	}
	d.GameStarted = true
	return []Field{newField(PathGameStarted, true)}
}

// RegisterGuest adds a guest name checked against d, which is only the
// caller's last known copy of the room. Two guests registering the same
// name concurrently can both succeed and then share one answer slot.
func RegisterGuest(d *Document, raw string) (string, []Field, error) {
	name, err := NormalizeGuestName(raw)
	if err != nil {
		return "", nil, err
	}
	if d.HasGuest(name) {
		return "", nil, &DuplicateNameError{Name: name}
	}
	d.GuestNames = append(d.GuestNames, name)
	if d.GuestAnswers == nil {
		d.GuestAnswers = map[string]Answers{}
	}
	if d.GuestAnswers[name] == nil {
		d.GuestAnswers[name] = Answers{}
	}
	return name, []Field{
		newField(guestAnswersPath(name), d.GuestAnswers[name]),
		newField(PathGuestNames, d.GuestNames),
	}, nil
}

// Heartbeat stamps the caller's presence slot with ms.
func Heartbeat(d *Document, id Identity, ms int64) (Field, bool) {
	s, ok := slotFor(id)
	if !ok {
		return Field{}, false
	}
	if d.Heartbeats.Guests == nil {
		d.Heartbeats.Guests = map[string]int64{}
	}
	s.setHeartbeat(d, ms)
	return newField(s.heartbeatPath, ms), true
}

// OwnAnswers returns the answer list the identity writes to.
func OwnAnswers(d Document, id Identity) Answers {
	s, ok := slotFor(id)
	if !ok || s.answers == nil {
		return nil
	}
	return s.answers(&d)
}
