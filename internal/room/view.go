package room

// ParticipantStatus is the compact connected/answered pair shown on the
// admin display.
type ParticipantStatus struct {
	Connected bool `json:"connected"`
	Answered  bool `json:"answered"`
}

type GuestPoolStatus struct {
	Connected int `json:"connected"`
	Answered  int `json:"answered"`
}

// Reveal is what the admin display shows once both primaries answered the
// current question.
type Reveal struct {
	PrimaryA       bool     `json:"primaryA"`
	PrimaryB       bool     `json:"primaryB"`
	Match          bool     `json:"match"`
	GuestsLikeA    []string `json:"guestsLikeA"`
	GuestsLikeB    []string `json:"guestsLikeB"`
	GuestsMatching []string `json:"guestsMatching,omitempty"`
}

type AdminView struct {
	PrimaryA ParticipantStatus `json:"primaryA"`
	PrimaryB ParticipantStatus `json:"primaryB"`
	Guests   GuestPoolStatus   `json:"guests"`
	Reveal   *Reveal           `json:"reveal,omitempty"`
	Results  *Results          `json:"results,omitempty"`
}

type Results struct {
	MatchCount    int          `json:"matchCount"`
	Compatibility int          `json:"compatibility"`
	Message       string       `json:"message"`
	TopByPrimaryA []GuestScore `json:"topByPrimaryA"`
	TopByPrimaryB []GuestScore `json:"topByPrimaryB"`
	Guests        []GuestScore `json:"guests"`
}

// View is the read-only state handed to the presentation layer on every
// refresh.
type View struct {
	Code           string     `json:"code"`
	Identity       string     `json:"identity"`
	Connected      bool       `json:"connected"`
	QuestionIndex  int        `json:"questionIndex"`
	QuestionText   string     `json:"questionText"`
	TotalQuestions int        `json:"totalQuestions"`
	Answered       bool       `json:"answered"`
	GameStarted    bool       `json:"gameStarted"`
	GameCompleted  bool       `json:"gameCompleted"`
	Admin          *AdminView `json:"admin,omitempty"`
}

// Derive computes the view of d for one participant.
func Derive(code string, d Document, id Identity, questions []string, p Presence) View {
	total := len(questions)
	v := View{
		Code:           code,
		Identity:       id.String(),
		QuestionIndex:  d.CurrentQuestion,
		TotalQuestions: total,
		GameStarted:    d.GameStarted,
		GameCompleted:  d.GameCompleted,
	}
	if d.CurrentQuestion < total {
		v.QuestionText = questions[d.CurrentQuestion]
	}
	v.Answered = OwnAnswers(d, id).Answered(d.CurrentQuestion)
	if id.IsAdmin() {
		v.Admin = deriveAdmin(d, total, p)
	}
	return v
}

func deriveAdmin(d Document, total int, p Presence) *AdminView {
	index := d.CurrentQuestion
	admin := &AdminView{
		PrimaryA: ParticipantStatus{
			Connected: p.Connected(d.Heartbeats.PrimaryA),
			Answered:  d.PrimaryAnswers.A.Answered(index),
		},
		PrimaryB: ParticipantStatus{
			Connected: p.Connected(d.Heartbeats.PrimaryB),
			Answered:  d.PrimaryAnswers.B.Answered(index),
		},
		Guests: GuestPoolStatus{
			Connected: p.ConnectedGuests(d),
			Answered:  AnsweredGuests(d),
		},
	}
	if d.GameCompleted || index >= total {
		scores := GuestScores(d, total)
		pct := Compatibility(d, total)
		admin.Results = &Results{
			MatchCount:    d.MatchCount,
			Compatibility: pct,
			Message:       CompatibilityMessage(pct),
			TopByPrimaryA: topGuests(RankGuests(scores, RolePrimaryA), RankingSize),
			TopByPrimaryB: topGuests(RankGuests(scores, RolePrimaryB), RankingSize),
			Guests:        scores,
		}
		return admin
	}
	a, okA := d.PrimaryAnswers.A.At(index)
	b, okB := d.PrimaryAnswers.B.At(index)
	if okA && okB {
		reveal := &Reveal{PrimaryA: a, PrimaryB: b, Match: a == b}
		if reveal.Match {
			reveal.GuestsMatching = GuestsWithAnswer(d, a)
		} else {
			reveal.GuestsLikeA = GuestsWithAnswer(d, a)
			reveal.GuestsLikeB = GuestsWithAnswer(d, b)
		}
		admin.Reveal = reveal
	}
	return admin
}
