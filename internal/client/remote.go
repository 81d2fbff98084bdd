package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	clientHeader    = "X-Quiz-Client"
	requestTimeout  = 5 * time.Second
	redialWait      = 2 * time.Second
	maxResponseSize = 256 * 1024
)

// Remote is a room store reached through the room service: HTTP for reads
// and writes, the room websocket for pushed changes.
type Remote struct {
	baseURL string
	id      string
	http    *http.Client
	dialer  *websocket.Dialer
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		id:      uuid.NewString(),
		http:    &http.Client{Timeout: requestTimeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: requestTimeout},
	}
}

// ID is the client id sent with every request.
func (r *Remote) ID() string {
	return r.id
}

type remoteField struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

type remoteSnapshot struct {
	Type string          `json:"type"`
	Code string          `json:"code"`
	Room json.RawMessage `json:"room"`
}

// Questions fetches the question list the service was started with.
func (r *Remote) Questions(ctx context.Context) ([]string, error) {
	resp, err := r.do(ctx, http.MethodGet, r.baseURL+"/api/questions", nil, "questions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var body struct {
		Questions []string `json:"questions"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, store.Unavailable("questions", err)
	}
	return body.Questions, nil
}

func (r *Remote) Read(ctx context.Context, code string) (room.Document, error) {
	return r.document(ctx, http.MethodGet, code, "read")
}

// Create asks the service to create the room. The service always creates
// rooms with defaults, so the document argument is not sent.
func (r *Remote) Create(ctx context.Context, code string, _ room.Document) (room.Document, error) {
	return r.document(ctx, http.MethodPost, code, "create")
}

func (r *Remote) Write(ctx context.Context, code string, doc room.Document) error {
	body, err := room.Encode(doc)
	if err != nil {
		return err
	}
	resp, err := r.do(ctx, http.MethodPut, r.roomURL(code), body, "write")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (r *Remote) Patch(ctx context.Context, code string, fields ...room.Field) error {
	if len(fields) == 0 {
		return nil
	}
	list := make([]remoteField, 0, len(fields))
	for _, f := range fields {
		list = append(list, remoteField{Path: f.Path, Value: f.Value})
	}
	body, err := json.Marshal(map[string]any{"fields": list})
	if err != nil {
		return err
	}
	resp, err := r.do(ctx, http.MethodPatch, r.roomURL(code), body, "patch")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Subscribe dials the room websocket and delivers every snapshot to fn.
// A dropped connection is redialed until cancel is called; only the first
// dial failure is returned.
func (r *Remote) Subscribe(ctx context.Context, code string, fn func(room.Document)) (func(), error) {
	conn, err := r.dial(ctx, code)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	var (
		mu      sync.Mutex
		current = conn
	)
	go func() {
		for {
			r.readSnapshots(ctx, code, current, fn)
			next, ok := r.redial(ctx, code)
			if !ok {
				return
			}
			mu.Lock()
			current = next
			mu.Unlock()
			if ctx.Err() != nil {
				_ = next.Close()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			mu.Lock()
			_ = current.Close()
			mu.Unlock()
		})
	}, nil
}

func (r *Remote) readSnapshots(ctx context.Context, code string, conn *websocket.Conn, fn func(room.Document)) {
	defer conn.Close()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("room", code).Msg("websocket closed")
			}
			return
		}
		var msg remoteSnapshot
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Type != "snapshot" {
			continue
		}
		doc, err := room.Decode(msg.Room)
		if err != nil {
			log.Warn().Err(err).Str("room", code).Msg("ignoring malformed snapshot")
			continue
		}
		if ctx.Err() != nil {
			return
		}
		fn(doc)
	}
}

func (r *Remote) redial(ctx context.Context, code string) (*websocket.Conn, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(redialWait):
		}
		conn, err := r.dial(ctx, code)
		if err == nil {
			log.Info().Str("room", code).Msg("websocket reconnected")
			return conn, true
		}
		log.Debug().Err(err).Str("room", code).Msg("websocket redial failed")
	}
}

func (r *Remote) dial(ctx context.Context, code string) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(r.baseURL, "http") + "/ws/rooms/" + url.PathEscape(code)
	header := http.Header{}
	header.Set(clientHeader, r.id)
	conn, _, err := r.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, store.Unavailable("subscribe", err)
	}
	return conn, nil
}

func (r *Remote) document(ctx context.Context, method, code, op string) (room.Document, error) {
	resp, err := r.do(ctx, method, r.roomURL(code), nil, op)
	if err != nil {
		return room.Document{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return room.Document{}, store.Unavailable(op, err)
	}
	doc, err := room.Decode(data)
	if err != nil {
		return room.Document{}, store.Malformed(code, err)
	}
	return doc, nil
}

// do sends one request and maps failure statuses onto store errors. The
// caller owns the body of a successful response.
func (r *Remote) do(ctx context.Context, method, target string, body []byte, op string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(clientHeader, r.id)
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer resp.Body.Close()
	message := errorMessage(resp)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, store.ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, store.Unavailable(op, fmt.Errorf("status %d: %s", resp.StatusCode, message))
	default:
		return nil, fmt.Errorf("store %s rejected: %s", op, message)
	}
}

func (r *Remote) roomURL(code string) string {
	return r.baseURL + "/api/rooms/" + url.PathEscape(code)
}

func errorMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return http.StatusText(resp.StatusCode)
	}
	return body.Error
}
