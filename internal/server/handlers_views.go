package server

import (
	"errors"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"
	"github.com/donok1/wedding-quiz/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleHome(c *gin.Context) {
	code, err := room.NormalizeCode(c.Query("room"))
	if err != nil {
		code = ""
	}
	templ.Handler(web.Home(code, len(s.questions))).ServeHTTP(c.Writer, c.Request)
}

// handleDisplayView renders the admin status screen. A room that does not
// exist yet is shown with defaults and is not stored.
func (s *Server) handleDisplayView(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	doc, err := s.store.Read(c.Request.Context(), code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		doc = room.New()
	case err != nil:
		writeStoreError(c, code, err)
		return
	}
	refresh := s.cfg.SyncIntervalMS / 1000
	if refresh < 1 {
		refresh = 1
	}
	templ.Handler(web.Display(web.DisplayState{
		Code:           code,
		JoinURL:        s.joinURL(code),
		QRPath:         "/api/rooms/" + code + "/qr",
		RefreshSeconds: refresh,
		View:           s.deriveView(code, doc, room.Admin()),
	})).ServeHTTP(c.Writer, c.Request)
}
