package store

import (
	"context"
	"sync"
)

// Notifier fans out "room changed" signals. It carries no payload:
// listeners re-read the room.
type Notifier interface {
	Publish(ctx context.Context, code string) error
	Listen(code string, fn func()) (cancel func(), err error)
}

// Broker is an in-process Notifier keyed by room code.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Listen calls fn on its own goroutine for every signal on code. Signals
// that arrive while fn is still running are coalesced into one.
func (b *Broker) Listen(code string, fn func()) (func(), error) {
	ch := make(chan struct{}, 1)
	done := make(chan struct{})
	b.mu.Lock()
	if b.subs[code] == nil {
		b.subs[code] = make(map[chan struct{}]struct{})
	}
	b.subs[code][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[code], ch)
			if len(b.subs[code]) == 0 {
				delete(b.subs, code)
			}
			b.mu.Unlock()
			close(done)
		})
	}, nil
}

func (b *Broker) Publish(_ context.Context, code string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[code] {
		select {
		case ch <- struct{}{}:
		default:
			// already pending
		}
	}
	return nil
}

// Listeners reports how many listeners are attached to code.
func (b *Broker) Listeners(code string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[code])
}
