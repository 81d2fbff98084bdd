package store

import (
	"context"
	"errors"
	"sync"

	"github.com/donok1/wedding-quiz/internal/room"
)

// Memory keeps one encoded document per room key. Reads and writes are
// synchronous under a single mutex.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Read(_ context.Context, code string) (room.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(code)
}

func (m *Memory) Create(_ context.Context, code string, doc room.Document) (room.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, err := m.load(code); err == nil {
		return existing, nil
	}
	if err := m.save(code, doc); err != nil {
		return room.Document{}, err
	}
	return room.Normalize(doc), nil
}

func (m *Memory) Write(_ context.Context, code string, doc room.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(code, doc)
}

func (m *Memory) Patch(_ context.Context, code string, fields ...room.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.load(code)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		doc = room.New()
	}
	doc, err = doc.Apply(fields...)
	if err != nil {
		return err
	}
	return m.save(code, doc)
}

// Raw stores data under the room key without validation.
func (m *Memory) Raw(code string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[Key(code)] = append([]byte(nil), data...)
}

func (m *Memory) load(code string) (room.Document, error) {
	data, ok := m.blobs[Key(code)]
	if !ok {
		return room.Document{}, ErrNotFound
	}
	doc, err := room.Decode(data)
	if err != nil {
		return room.Document{}, Malformed(code, err)
	}
	return doc, nil
}

func (m *Memory) save(code string, doc room.Document) error {
	data, err := room.Encode(doc)
	if err != nil {
		return err
	}
	m.blobs[Key(code)] = data
	return nil
}
