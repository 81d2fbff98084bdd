package server

import (
	"crypto/rand"
	"errors"
	"net/http"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 4
	codeAttempts = 8
)

func newRoomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// handleNewRoom creates a room under a fresh random code.
func (s *Server) handleNewRoom(c *gin.Context) {
	ctx := c.Request.Context()
	for i := 0; i < codeAttempts; i++ {
		code, err := newRoomCode()
		if err != nil {
			writeError(c, http.StatusInternalServerError, "could not generate a room code")
			return
		}
		_, err = s.store.Read(ctx, code)
		switch {
		case err == nil, errors.Is(err, store.ErrMalformed):
			continue
		case !errors.Is(err, store.ErrNotFound):
			writeStoreError(c, code, err)
			return
		}
		doc, err := s.store.Create(ctx, code, room.New())
		if err != nil {
			writeStoreError(c, code, err)
			return
		}
		logRoom(log.Info(), code).Msg("room created")
		c.JSON(http.StatusCreated, gin.H{"code": code, "room": doc})
		return
	}
	writeError(c, http.StatusServiceUnavailable, "no free room code, try again")
}
