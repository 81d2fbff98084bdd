package room

import (
	"math"
	"sort"
)

// RankingSize is how many guests the final leaderboard shows per primary.
const RankingSize = 10

type GuestScore struct {
	Name     string `json:"name"`
	Answered int    `json:"answered"`
	PrimaryA int    `json:"primaryA"`
	PrimaryB int    `json:"primaryB"`
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// Compatibility is the share of all questions the primaries agreed on.
func Compatibility(d Document, total int) int {
	return percent(d.MatchCount, total)
}

func CompatibilityMessage(pct int) string {
	switch {
	case pct >= 80:
		return "You are perfectly in sync!"
	case pct >= 60:
		return "Great compatibility, you know each other well!"
	case pct >= 40:
		return "A few differences keep life interesting!"
	default:
		return "Opposites attract, you complete each other!"
	}
}

// GuestsWithAnswer lists, in registration order, the guests who gave
// answer to the current question.
func GuestsWithAnswer(d Document, answer bool) []string {
	names := make([]string, 0)
	for _, name := range d.GuestNames {
		if value, ok := d.GuestAnswers[name].At(d.CurrentQuestion); ok && value == answer {
			names = append(names, name)
		}
	}
	return names
}

// GuestScores scores every guest who answered at least one question by
// agreement with each primary. Percentages are taken over all questions,
// not only the ones the guest answered.
func GuestScores(d Document, total int) []GuestScore {
	scores := make([]GuestScore, 0, len(d.GuestNames))
	for _, name := range d.GuestNames {
		answers := d.GuestAnswers[name]
		answered, withA, withB := 0, 0, 0
		for i := 0; i < total; i++ {
			value, ok := answers.At(i)
			if !ok {
				continue
			}
			answered++
			if a, okA := d.PrimaryAnswers.A.At(i); okA && a == value {
				withA++
			}
			if b, okB := d.PrimaryAnswers.B.At(i); okB && b == value {
				withB++
			}
		}
		if answered == 0 {
			continue
		}
		scores = append(scores, GuestScore{
			Name:     name,
			Answered: answered,
			PrimaryA: percent(withA, total),
			PrimaryB: percent(withB, total),
		})
	}
	return scores
}

// RankGuests orders scores by agreement with role, highest first. Ties keep
// registration order.
func RankGuests(scores []GuestScore, role Role) []GuestScore {
	ranked := append([]GuestScore{}, scores...)
	key := func(s GuestScore) int {
		if role == RolePrimaryB {
			return s.PrimaryB
		}
		return s.PrimaryA
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return key(ranked[i]) > key(ranked[j])
	})
	return ranked
}

func topGuests(scores []GuestScore, n int) []GuestScore {
	if len(scores) > n {
		return scores[:n]
	}
	return scores
}
