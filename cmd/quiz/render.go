package main

import (
	"fmt"
	"strings"

	"github.com/donok1/wedding-quiz/internal/room"
)

func renderView(v room.View) string {
	if v.Code == "" {
		return "not in a room, use: join CODE\n"
	}
	var b strings.Builder
	status := "online"
	if !v.Connected {
		status = "offline"
	}
	identity := v.Identity
	if identity == "" {
		identity = "nobody yet"
	}
	fmt.Fprintf(&b, "\n[room %s] %s, %s\n", v.Code, identity, status)

	switch {
	case v.Identity == "":
		b.WriteString("pick a role: role primaryA | primaryB | admin | guest\n")
		return b.String()
	case v.Identity == string(room.RoleGuest):
		b.WriteString("register first: name YOUR NAME\n")
		return b.String()
	}

	if v.GameCompleted {
		b.WriteString("The quiz is over.\n")
	} else {
		fmt.Fprintf(&b, "Question %d/%d: %s\n", v.QuestionIndex+1, v.TotalQuestions, v.QuestionText)
		if v.Admin == nil {
			if v.Answered {
				b.WriteString("answered, waiting for the next question\n")
			} else {
				b.WriteString("answer with: yes | no\n")
			}
		}
	}
	if v.Admin != nil {
		renderAdmin(&b, v.Admin)
	}
	return b.String()
}

func renderAdmin(b *strings.Builder, a *room.AdminView) {
	fmt.Fprintf(b, "  Partner A: %s\n", participant(a.PrimaryA))
	fmt.Fprintf(b, "  Partner B: %s\n", participant(a.PrimaryB))
	fmt.Fprintf(b, "  Guests: %d online, %d answered\n", a.Guests.Connected, a.Guests.Answered)

	if r := a.Reveal; r != nil {
		fmt.Fprintf(b, "  A said %s, B said %s\n", yesNo(r.PrimaryA), yesNo(r.PrimaryB))
		if r.Match {
			b.WriteString("  It's a match!\n")
			writeNames(b, "  guests who agreed", r.GuestsMatching)
		} else {
			writeNames(b, "  guests with A", r.GuestsLikeA)
			writeNames(b, "  guests with B", r.GuestsLikeB)
		}
	}

	if res := a.Results; res != nil {
		fmt.Fprintf(b, "  %d matches, %d%% compatible. %s\n", res.MatchCount, res.Compatibility, res.Message)
		writeRanking(b, "  guests closest to A", res.TopByPrimaryA, func(s room.GuestScore) int { return s.PrimaryA })
		writeRanking(b, "  guests closest to B", res.TopByPrimaryB, func(s room.GuestScore) int { return s.PrimaryB })
	}
}

func participant(s room.ParticipantStatus) string {
	status := "offline"
	if s.Connected {
		status = "online"
	}
	if s.Answered {
		return status + ", answered"
	}
	return status + ", waiting"
}

func writeNames(b *strings.Builder, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(names, ", "))
}

func writeRanking(b *strings.Builder, label string, scores []room.GuestScore, pct func(room.GuestScore) int) {
	if len(scores) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for i, s := range scores {
		fmt.Fprintf(b, "    %d. %s %d%%\n", i+1, s.Name, pct(s))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
