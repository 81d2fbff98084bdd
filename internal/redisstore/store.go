// Package redisstore keeps each room as a Redis hash with one entry per
// document leaf, and announces changes over Redis pub/sub.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const createAttempts = 3

type Store struct {
	rdb *redis.Client
}

// Open connects to the server at url and checks it with a ping.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func roomKey(code string) string {
	return "quiz:room:" + code
}

func changedChannel(code string) string {
	return roomKey(code) + ":changed"
}

func (s *Store) Read(ctx context.Context, code string) (room.Document, error) {
	return read(ctx, s.rdb, code)
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func read(ctx context.Context, r hashReader, code string) (room.Document, error) {
	entries, err := r.HGetAll(ctx, roomKey(code)).Result()
	if err != nil {
		if isWrongType(err) {
			return room.Document{}, store.Malformed(code, err)
		}
		return room.Document{}, store.Unavailable("read", err)
	}
	if len(entries) == 0 {
		return room.Document{}, store.ErrNotFound
	}
	return room.FromFields(leaves(entries))
}

func (s *Store) Create(ctx context.Context, code string, doc room.Document) (room.Document, error) {
	key := roomKey(code)
	var stored room.Document
	create := func(tx *redis.Tx) error {
		existing, err := read(ctx, tx, code)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			replace(ctx, pipe, code, doc)
			return nil
		})
		stored = room.Normalize(doc)
		return err
	}
	for attempt := 0; attempt < createAttempts; attempt++ {
		err := s.rdb.Watch(ctx, create, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return room.Document{}, store.Unavailable("create", err)
		}
		return stored, nil
	}
	return s.Read(ctx, code)
}

func (s *Store) Write(ctx context.Context, code string, doc room.Document) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		replace(ctx, pipe, code, doc)
		return nil
	})
	return store.Unavailable("write", err)
}

func (s *Store) Patch(ctx context.Context, code string, fields ...room.Field) error {
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		if err := room.ValidateField(f); err != nil {
			return err
		}
		values[f.Path] = string(f.Value)
	}
	if len(values) == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey(code), values)
		pipe.Publish(ctx, changedChannel(code), code)
		return nil
	})
	return store.Unavailable("patch", err)
}

// Subscribe listens on the room's change channel and re-reads the hash on
// every message. The subscription is confirmed before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, code string, fn func(room.Document)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	ps := s.rdb.Subscribe(subCtx, changedChannel(code))
	if _, err := ps.Receive(subCtx); err != nil {
		cancel()
		ps.Close()
		return nil, store.Unavailable("subscribe", err)
	}
	messages := ps.Channel()
	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				doc, err := s.Read(subCtx, code)
				if err != nil {
					log.Warn().Err(err).Str("room", code).Msg("re-read after change message failed")
					continue
				}
				fn(doc)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			ps.Close()
		})
	}, nil
}

func replace(ctx context.Context, pipe redis.Pipeliner, code string, doc room.Document) {
	key := roomKey(code)
	fields := doc.Fields()
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		values[f.Path] = string(f.Value)
	}
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, values)
	pipe.Publish(ctx, changedChannel(code), code)
}

func leaves(entries map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(entries))
	for path, value := range entries {
		out[path] = json.RawMessage(value)
	}
	return out
}

func isWrongType(err error) bool {
	return strings.HasPrefix(err.Error(), "WRONGTYPE")
}
