package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type snapshotMessage struct {
	Type string        `json:"type"`
	Code string        `json:"code"`
	Room room.Document `json:"room"`
}

func snapshot(code string, doc room.Document) snapshotMessage {
	return snapshotMessage{Type: "snapshot", Code: code, Room: doc}
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type wsGroup struct {
	conns       map[*wsConn]struct{}
	unsubscribe func()
}

// wsHub groups websocket clients by room. The first client of a room
// attaches a store subscription and the last one to leave detaches it.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]*wsGroup
}

func newWSHub() *wsHub {
	return &wsHub{groups: make(map[string]*wsGroup)}
}

func (h *wsHub) Add(code string, conn *wsConn, subscribe func() (func(), error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		unsubscribe, err := subscribe()
		if err != nil {
			return err
		}
		group = &wsGroup{conns: make(map[*wsConn]struct{}), unsubscribe: unsubscribe}
		h.groups[code] = group
	}
	group.conns[conn] = struct{}{}
	return nil
}

func (h *wsHub) Remove(code string, conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		return
	}
	if _, ok := group.conns[conn]; !ok {
		return
	}
	delete(group.conns, conn)
	_ = conn.conn.Close()
	if len(group.conns) == 0 {
		group.unsubscribe()
		delete(h.groups, code)
	}
}

func (h *wsHub) Send(conn *wsConn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.write(data)
}

func (h *wsHub) Broadcast(code string, payload any) {
	h.mu.Lock()
	group := h.groups[code]
	conns := make([]*wsConn, 0)
	if group != nil {
		for conn := range group.conns {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.write(data); err != nil {
			h.Remove(code, conn)
		}
	}
}

// Clients reports how many websocket clients watch code.
func (h *wsHub) Clients(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if group := h.groups[code]; group != nil {
		return len(group.conns)
	}
	return 0
}

func (h *wsHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code, group := range h.groups {
		for conn := range group.conns {
			_ = conn.conn.Close()
		}
		group.unsubscribe()
		delete(h.groups, code)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebsocket(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}
	err = s.ws.Add(code, conn, func() (func(), error) {
		return s.rooms.Subscribe(context.Background(), code, func(doc room.Document) {
			s.ws.Broadcast(code, snapshot(code, doc))
		})
	})
	if err != nil {
		logRoom(log.Warn(), code).Err(err).Msg("room subscription failed")
		_ = raw.Close()
		return
	}
	logRoom(log.Debug(), code).Str("remote", c.Request.RemoteAddr).Msg("ws connected")

	doc, err := s.store.Read(c.Request.Context(), code)
	switch {
	case err == nil:
		_ = s.ws.Send(conn, snapshot(code, doc))
	case !errors.Is(err, store.ErrNotFound):
		logRoom(log.Warn(), code).Err(err).Msg("initial snapshot failed")
	}
	go s.readWS(code, conn)
}

func (s *Server) readWS(code string, conn *wsConn) {
	defer s.ws.Remove(code, conn)
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			logRoom(log.Debug(), code).Err(err).Msg("ws disconnected")
			return
		}
	}
}
