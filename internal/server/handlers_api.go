package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/donok1/wedding-quiz/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	maxDocumentBytes = 256 * 1024
	qrSize           = 256
)

type fieldRequest struct {
	Path  string          `json:"path" binding:"required,fieldpath"`
	Value json.RawMessage `json:"value" binding:"required"`
}

type patchRequest struct {
	Fields []fieldRequest `json:"fields" binding:"required,min=1,dive"`
}

type viewQuery struct {
	Role string `form:"role" binding:"required,oneof=primaryA primaryB admin guest"`
	Name string `form:"name" binding:"omitempty,guestname"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"questions": s.questions,
		"total":     len(s.questions),
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	doc, err := s.store.Read(c.Request.Context(), code)
	if err != nil {
		writeStoreError(c, code, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	doc, err := s.store.Create(c.Request.Context(), code, room.New())
	if err != nil {
		writeStoreError(c, code, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleWriteRoom(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := room.Decode(data)
	if err != nil {
		writeStoreError(c, code, err)
		return
	}
	if err := s.store.Write(c.Request.Context(), code, doc); err != nil {
		writeStoreError(c, code, err)
		return
	}
	logRoom(log.Info(), code).Msg("room document replaced")
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handlePatchRoom(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var req patchRequest
	if !bindJSON(c, &req, bindMessages{
		"Fields": {"required": "fields are required", "min": "fields are required"},
		"Path":   {"required": "field path is required", "fieldpath": "unknown field path"},
		"Value":  {"required": "field value is required"},
	}, "invalid patch") {
		return
	}
	fields := make([]room.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		field := room.Field{Path: f.Path, Value: f.Value}
		if err := room.ValidateField(field); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		fields = append(fields, field)
	}
	if err := s.store.Patch(c.Request.Context(), code, fields...); err != nil {
		writeStoreError(c, code, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRoomView(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var query viewQuery
	if !bindQuery(c, &query, bindMessages{
		"Role": {"required": "role is required", "oneof": "unknown role"},
		"Name": {"guestname": "invalid guest name"},
	}, "invalid view request") {
		return
	}
	role, err := room.ParseRole(query.Role)
	if err != nil {
		writeStoreError(c, code, err)
		return
	}
	id := room.Identity{Role: role}
	if role == room.RoleGuest && query.Name != "" {
		id.GuestName, _ = room.NormalizeGuestName(query.Name)
	}
	doc, err := s.store.Read(c.Request.Context(), code)
	if err != nil {
		writeStoreError(c, code, err)
		return
	}
	c.JSON(http.StatusOK, s.deriveView(code, doc, id))
}

func (s *Server) handleRoomQR(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	png, err := qrcode.Encode(s.joinURL(code), qrcode.Medium, qrSize)
	if err != nil {
		logRoom(log.Error(), code).Err(err).Msg("qr encode failed")
		writeError(c, http.StatusInternalServerError, "qr code unavailable")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) deriveView(code string, doc room.Document, id room.Identity) room.View {
	presence := room.Presence{Now: s.clock.Now(), Timeout: s.cfg.ConnectionTimeout()}
	view := room.Derive(code, doc, id, s.questions, presence)
	view.Connected = presence.IsConnected(doc, id)
	return view
}

func (s *Server) joinURL(code string) string {
	return s.cfg.PublicURL + "/?room=" + code
}
