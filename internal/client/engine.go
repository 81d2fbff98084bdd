package client

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Tick is run by the engine on every timer fire. ctx is cancelled as soon
// as the engine stops, so a tick that outlives its engine can tell its
// result is no longer wanted.
type Tick func(ctx context.Context)

// Engine drives two independent periodic timers: sync and heartbeat. They
// are always started and stopped together.
type Engine struct {
	clock     clockwork.Clock
	syncEvery time.Duration
	beatEvery time.Duration
	onSync    Tick
	onBeat    Tick

	mu      sync.Mutex
	cancel  context.CancelFunc
	tickers []clockwork.Ticker
}

func NewEngine(clock clockwork.Clock, syncEvery, beatEvery time.Duration, onSync, onBeat Tick) *Engine {
	return &Engine{
		clock:     clock,
		syncEvery: syncEvery,
		beatEvery: beatEvery,
		onSync:    onSync,
		onBeat:    onBeat,
	}
}

// Start arms both timers. A running engine is stopped first, so there is
// never more than one pair of timers.
func (e *Engine) Start(parent context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	syncTicker := e.clock.NewTicker(e.syncEvery)
	beatTicker := e.clock.NewTicker(e.beatEvery)
	e.cancel = cancel
	e.tickers = []clockwork.Ticker{syncTicker, beatTicker}

	go e.run(ctx, syncTicker, e.onSync)
	go e.run(ctx, beatTicker, e.onBeat)
	log.Debug().
		Dur("sync_interval", e.syncEvery).
		Dur("heartbeat_interval", e.beatEvery).
		Msg("sync engine started")
}

// Stop cancels both timers. Ticks already running are not awaited.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopLocked() {
		log.Debug().Msg("sync engine stopped")
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

func (e *Engine) stopLocked() bool {
	if e.cancel == nil {
		return false
	}
	for _, t := range e.tickers {
		t.Stop()
	}
	e.cancel()
	e.cancel = nil
	e.tickers = nil
	return true
}

func (e *Engine) run(ctx context.Context, ticker clockwork.Ticker, tick Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			tick(ctx)
		}
	}
}
