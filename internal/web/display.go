package web

import (
	"context"
	"io"
	"strings"

	"github.com/donok1/wedding-quiz/internal/room"

	"github.com/a-h/templ"
)

// Display renders the admin status screen: the current question, who is
// connected and has answered, the reveal once both primaries answered, and
// the results once the game is over.
func Display(state DisplayState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		view := state.View
		b.WriteString(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <meta http-equiv="refresh" content="` + itoa(state.RefreshSeconds) + `"/>
    <title>Room ` + esc(state.Code) + `</title>
  </head>
  <body>
    <main class="display">
      <header>
        <span class="tag">Room ` + esc(state.Code) + `</span>
        <img class="qr" src="` + esc(state.QRPath) + `" alt="Join ` + esc(state.JoinURL) + `"/>
      </header>
`)
		admin := view.Admin
		switch {
		case admin != nil && admin.Results != nil:
			writeResults(&b, admin.Results)
		default:
			b.WriteString(`      <section class="question">
        <p class="progress">Question ` + itoa(view.QuestionIndex+1) + ` of ` + itoa(view.TotalQuestions) + `</p>
        <h1>` + esc(view.QuestionText) + `</h1>
      </section>
`)
			if admin != nil {
				writeStatus(&b, admin)
				if admin.Reveal != nil {
					writeReveal(&b, admin.Reveal)
				}
			}
		}
		b.WriteString(`    </main>
  </body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeStatus(b *strings.Builder, admin *room.AdminView) {
	b.WriteString(`      <section class="status">
        <ul>
          <li>` + statusDot(admin.PrimaryA.Connected) + ` Partner A answered: ` + yesNo(admin.PrimaryA.Answered) + `</li>
          <li>` + statusDot(admin.PrimaryB.Connected) + ` Partner B answered: ` + yesNo(admin.PrimaryB.Answered) + `</li>
          <li>Guests connected: ` + itoa(admin.Guests.Connected) + `, answered: ` + itoa(admin.Guests.Answered) + `</li>
        </ul>
      </section>
`)
}

func writeReveal(b *strings.Builder, reveal *room.Reveal) {
	b.WriteString(`      <section class="reveal">
        <p>Partner A: ` + yesNo(reveal.PrimaryA) + ` / Partner B: ` + yesNo(reveal.PrimaryB) + `</p>
`)
	if reveal.Match {
		b.WriteString(`        <h2 class="match">It's a match!</h2>
        <p>Guests who agreed: ` + nameList(reveal.GuestsMatching) + `</p>
`)
	} else {
		b.WriteString(`        <h2 class="mismatch">Different answers</h2>
        <p>Guests with Partner A: ` + nameList(reveal.GuestsLikeA) + `</p>
        <p>Guests with Partner B: ` + nameList(reveal.GuestsLikeB) + `</p>
`)
	}
	b.WriteString("      </section>\n")
}

func writeResults(b *strings.Builder, results *room.Results) {
	b.WriteString(`      <section class="results">
        <h1>` + itoa(results.Compatibility) + `% compatible</h1>
        <p>` + esc(results.Message) + `</p>
        <p>` + itoa(results.MatchCount) + ` matching answers</p>
`)
	writeRanking(b, "Closest to Partner A", results.TopByPrimaryA, func(s room.GuestScore) int { return s.PrimaryA })
	writeRanking(b, "Closest to Partner B", results.TopByPrimaryB, func(s room.GuestScore) int { return s.PrimaryB })
	b.WriteString("      </section>\n")
}

func writeRanking(b *strings.Builder, title string, scores []room.GuestScore, pct func(room.GuestScore) int) {
	b.WriteString(`        <h2>` + esc(title) + `</h2>
        <ol>
`)
	for _, score := range scores {
		b.WriteString(`          <li>` + esc(score.Name) + ` ` + itoa(pct(score)) + `%</li>
`)
	}
	b.WriteString("        </ol>\n")
}
