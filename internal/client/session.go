// Package client is the participant side of a quiz room: the session a
// player, guest or admin holds, and the engine that keeps it in sync with
// the shared room store.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/donok1/wedding-quiz/internal/config"
	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNoRoom = errors.New("no room joined")

// Session is the state of one client. A single mutex serializes user
// operations, timer ticks and subscription deliveries, so none of them
// ever observe each other half done.
type Session struct {
	store     store.Store
	questions []string
	clock     clockwork.Clock
	timeout   time.Duration
	onRefresh func(room.View)
	engine    *Engine

	mu          sync.Mutex
	code        string
	id          room.Identity
	doc         room.Document
	connected   bool
	generation  uint64
	unsubscribe func()
}

type Option func(*Session)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// OnRefresh registers the presentation callback. It receives a fresh view
// after every sync tick and every successful local change, and is never
// called with the session lock held.
func OnRefresh(fn func(room.View)) Option {
	return func(s *Session) {
		s.onRefresh = fn
	}
}

func NewSession(st store.Store, questions []string, cfg config.Config, opts ...Option) *Session {
	s := &Session{
		store:     st,
		questions: questions,
		clock:     clockwork.NewRealClock(),
		timeout:   cfg.ConnectionTimeout(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewEngine(s.clock, cfg.SyncInterval(), cfg.HeartbeatInterval(), s.syncTick, s.heartbeatTick)
	return s
}

// JoinRoom loads the room, creating it with defaults when it does not
// exist yet, and starts syncing. Any previous room is left first. The
// identity is cleared; the caller picks a role next.
func (s *Session) JoinRoom(ctx context.Context, raw string) error {
	code, err := room.NormalizeCode(raw)
	if err != nil {
		return err
	}
	s.Leave()

	doc, err := s.store.Create(ctx, code, room.New())
	s.mu.Lock()
	if err != nil {
		s.failLocked("join", err)
		s.mu.Unlock()
		return err
	}
	s.code = code
	s.doc = doc
	s.id = room.Identity{}
	s.connected = true
	s.generation++
	s.subscribeLocked()
	view := s.viewLocked()
	s.mu.Unlock()

	s.engine.Start(context.Background())
	log.Info().Str("room", code).Msg("joined room")
	s.emit(view)
	return nil
}

// SelectRole sets the local identity. The first admin to arrive starts
// the game. A guest still has to register a name before answering.
func (s *Session) SelectRole(ctx context.Context, raw string) error {
	role, err := room.ParseRole(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.code == "" {
		s.mu.Unlock()
		return ErrNoRoom
	}
	id := room.Identity{Role: role}
	next := s.doc.Clone()
	var fields []room.Field
	if id.IsAdmin() {
		fields = room.StartGame(&next)
	}
	if beat, ok := room.Heartbeat(&next, id, s.now()); ok {
		fields = append(fields, beat)
	}
	if err := s.commitLocked(ctx, next, fields); err != nil {
		s.mu.Unlock()
		return err
	}
	s.id = id
	s.logger(log.Info()).Msg("role selected")
	view := s.viewLocked()
	s.mu.Unlock()
	s.emit(view)
	return nil
}

// RegisterGuestName claims a guest name. Uniqueness is only checked
// against the locally loaded room, so a concurrent registration of the
// same name elsewhere is not detected.
func (s *Session) RegisterGuestName(ctx context.Context, raw string) (string, error) {
	s.mu.Lock()
	if s.code == "" {
		s.mu.Unlock()
		return "", ErrNoRoom
	}
	if s.id.Role != room.RoleGuest || s.id.GuestName != "" {
		s.mu.Unlock()
		return "", room.ErrNotAllowed
	}
	next := s.doc.Clone()
	name, fields, err := room.RegisterGuest(&next, raw)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	id := room.Guest(name)
	if beat, ok := room.Heartbeat(&next, id, s.now()); ok {
		fields = append(fields, beat)
	}
	if err := s.commitLocked(ctx, next, fields); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.id = id
	s.logger(log.Info()).Msg("guest registered")
	view := s.viewLocked()
	s.mu.Unlock()
	s.emit(view)
	return name, nil
}

// SubmitAnswer records this participant's answer to the current question.
// A registered guest whose name is gone from the room, after a restart,
// is registered again in the same write.
func (s *Session) SubmitAnswer(ctx context.Context, answer bool) error {
	return s.change(ctx, func(next *room.Document) ([]room.Field, error) {
		var fields []room.Field
		if s.id.Role == room.RoleGuest && s.id.GuestName != "" && !next.HasGuest(s.id.GuestName) {
			_, registered, err := room.RegisterGuest(next, s.id.GuestName)
			if err != nil {
				return nil, err
			}
			fields = registered
		}
		answered, err := room.SubmitAnswer(next, s.id, answer)
		if err != nil {
			return nil, err
		}
		return append(fields, answered...), nil
	})
}

// AdvanceQuestion moves the room on. Only an admin session may do this.
func (s *Session) AdvanceQuestion(ctx context.Context) error {
	return s.change(ctx, func(next *room.Document) ([]room.Field, error) {
		if !s.id.IsAdmin() {
			return nil, room.ErrNotAllowed
		}
		return room.AdvanceQuestion(next, len(s.questions)), nil
	})
}

// Restart resets the room to defaults for everyone and sends this session
// back to role selection.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.code == "" {
		s.mu.Unlock()
		return ErrNoRoom
	}
	if !s.id.IsAdmin() {
		s.mu.Unlock()
		return room.ErrNotAllowed
	}
	fresh := room.New()
	if err := s.store.Write(ctx, s.code, fresh); err != nil {
		s.failLocked("restart", err)
		s.mu.Unlock()
		return err
	}
	s.logger(log.Info()).Msg("room restarted")
	s.doc = fresh
	s.id = room.Identity{}
	s.setConnectedLocked(true)
	view := s.viewLocked()
	s.mu.Unlock()
	s.emit(view)
	return nil
}

// Pause stops the timers and detaches from pushed updates while the
// client is in the background. The room and identity are kept.
func (s *Session) Pause() {
	s.engine.Stop()
	s.mu.Lock()
	s.detachLocked()
	s.mu.Unlock()
}

// Resume re-attaches a paused session and syncs right away.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.code == "" {
		s.mu.Unlock()
		return ErrNoRoom
	}
	s.detachLocked()
	s.subscribeLocked()
	s.mu.Unlock()

	s.engine.Start(context.Background())
	s.sync(ctx, true)
	return nil
}

// Leave stops syncing and forgets the room.
func (s *Session) Leave() {
	s.engine.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == "" {
		return
	}
	s.detachLocked()
	log.Info().Str("room", s.code).Msg("left room")
	s.code = ""
	s.id = room.Identity{}
	s.doc = room.Document{}
	s.connected = false
	s.generation++
}

func (s *Session) View() room.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

func (s *Session) Identity() room.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Document returns a copy of the locally held room.
func (s *Session) Document() room.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Syncing reports whether the engine timers are armed.
func (s *Session) Syncing() bool {
	return s.engine.Running()
}

// change applies fn to a copy of the room and persists the leaves it
// returns. The local copy is only replaced once the store accepted them.
func (s *Session) change(ctx context.Context, fn func(next *room.Document) ([]room.Field, error)) error {
	s.mu.Lock()
	if s.code == "" {
		s.mu.Unlock()
		return ErrNoRoom
	}
	next := s.doc.Clone()
	fields, err := fn(&next)
	if err == nil {
		err = s.commitLocked(ctx, next, fields)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.emit(view)
	return nil
}

func (s *Session) commitLocked(ctx context.Context, next room.Document, fields []room.Field) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Patch(ctx, s.code, fields...); err != nil {
		if store.IsConnectivity(err) {
			s.failLocked("patch", err)
		} else {
			s.logger(log.Warn()).Err(err).Msg("change rejected")
		}
		return err
	}
	s.doc = next
	s.setConnectedLocked(true)
	return nil
}

func (s *Session) syncTick(ctx context.Context) {
	s.sync(ctx, false)
}

// sync refreshes derived state. Without a live subscription, or when
// forced, it first replaces the local room with the stored one.
func (s *Session) sync(ctx context.Context, force bool) {
	s.mu.Lock()
	if s.code == "" {
		s.mu.Unlock()
		return
	}
	if force || s.unsubscribe == nil {
		doc, err := s.readLocked(ctx)
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.failLocked("sync", err)
		} else {
			s.doc = doc
			s.setConnectedLocked(true)
		}
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.emit(view)
}

func (s *Session) heartbeatTick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == "" {
		return
	}
	next := s.doc.Clone()
	beat, ok := room.Heartbeat(&next, s.id, s.now())
	if !ok {
		return
	}
	if err := s.store.Patch(ctx, s.code, beat); err != nil {
		if ctx.Err() == nil && store.IsConnectivity(err) {
			s.failLocked("heartbeat", err)
		}
		return
	}
	s.doc = next
	s.setConnectedLocked(true)
}

// readLocked loads the stored room. A room that vanished or no longer
// decodes is reinitialized with defaults.
func (s *Session) readLocked(ctx context.Context) (room.Document, error) {
	doc, err := s.store.Read(ctx, s.code)
	if errors.Is(err, store.ErrNotFound) {
		s.logger(log.Warn()).Err(err).Msg("room unreadable, reinitializing")
		return s.store.Create(ctx, s.code, room.New())
	}
	return doc, err
}

func (s *Session) subscribeLocked() {
	sub, ok := s.store.(store.Subscriber)
	if !ok {
		return
	}
	generation := s.generation
	cancel, err := sub.Subscribe(context.Background(), s.code, func(doc room.Document) {
		s.receive(generation, doc)
	})
	if err != nil {
		s.logger(log.Warn()).Err(err).Msg("subscription failed, polling instead")
		return
	}
	s.unsubscribe = cancel
}

func (s *Session) detachLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// receive replaces the local room with a pushed one. Deliveries for a room
// this session has since left are dropped.
func (s *Session) receive(generation uint64, doc room.Document) {
	s.mu.Lock()
	if generation != s.generation || s.unsubscribe == nil {
		s.mu.Unlock()
		return
	}
	s.doc = doc
	s.setConnectedLocked(true)
	view := s.viewLocked()
	s.mu.Unlock()
	s.emit(view)
}

func (s *Session) failLocked(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	event := log.Debug()
	if s.connected {
		event = log.Warn()
	}
	s.logger(event).Str("op", op).Err(err).Msg("room store unreachable")
	s.connected = false
}

func (s *Session) setConnectedLocked(connected bool) {
	if connected && !s.connected && s.code != "" {
		s.logger(log.Info()).Msg("room store reachable again")
	}
	s.connected = connected
}

func (s *Session) viewLocked() room.View {
	if s.code == "" {
		return room.View{}
	}
	presence := room.Presence{Now: s.clock.Now(), Timeout: s.timeout}
	view := room.Derive(s.code, s.doc, s.id, s.questions, presence)
	view.Connected = s.connected
	return view
}

func (s *Session) emit(view room.View) {
	if s.onRefresh != nil {
		s.onRefresh(view)
	}
}

func (s *Session) now() int64 {
	return room.Millis(s.clock.Now())
}

func (s *Session) logger(event *zerolog.Event) *zerolog.Event {
	event = event.Str("room", s.code)
	if s.id.Role != "" {
		event = event.Str("role", s.id.String())
	}
	return event
}
