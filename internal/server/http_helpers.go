package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// clientHeader carries the id a terminal client generates per session.
const clientHeader = "X-Quiz-Client"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		status := c.Writer.Status()
		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		if client := c.GetHeader(clientHeader); client != "" {
			event = event.Str("client", client)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// writeStoreError maps domain and store errors onto HTTP statuses.
func writeStoreError(c *gin.Context, code string, err error) {
	var validation *room.ValidationError
	var malformed *room.MalformedStateError
	switch {
	case errors.As(err, &validation), errors.As(err, &malformed), errors.Is(err, room.ErrUnknownPath):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "room not found")
	case store.IsConnectivity(err):
		logRoom(log.Warn(), code).Err(err).Msg("store unavailable")
		writeError(c, http.StatusServiceUnavailable, "room store unavailable")
	default:
		logRoom(log.Error(), code).Err(err).Msg("room request failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func logRoom(event *zerolog.Event, code string) *zerolog.Event {
	return event.Str("room", code)
}
