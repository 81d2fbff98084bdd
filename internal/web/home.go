package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Home renders the landing page. code pre-fills the form when the page was
// reached from a join QR code.
func Home(code string, total int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Wedding Quiz</title>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Wedding Quiz</span>
        <h1>How well do they know each other?</h1>
        <p>`+itoa(total)+` questions. Both partners answer, guests guess along.</p>
      </header>
      <section class="panel">
        <form id="roomForm" class="join-form">
          <input name="code" placeholder="Room code" autocomplete="off" value="`+esc(code)+`" required/>
          <button type="submit" class="primary">Open display</button>
          <button type="button" id="newRoom">New room</button>
        </form>
        <p class="hint">Partners and guests join from the quiz client with the same code.</p>
      </section>
    </main>
    <script>
      document.getElementById("roomForm").addEventListener("submit", (event) => {
        event.preventDefault();
        const code = new FormData(event.target).get("code").trim().toUpperCase();
        if (code) {
          window.location.href = "/display/" + encodeURIComponent(code);
        }
      });
      document.getElementById("newRoom").addEventListener("click", async () => {
        const resp = await fetch("/api/rooms", { method: "POST" });
        if (resp.ok) {
          const body = await resp.json();
          window.location.href = "/display/" + body.code;
        }
      });
    </script>
  </body>
</html>
`)
		return err
	})
}
