// Package natsbus carries room change signals between server instances
// over NATS core subjects.
package natsbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	maxReconnects = -1
	reconnectWait = 2 * time.Second
)

// Connect opens a NATS connection that reconnects forever and logs its
// state changes.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("wedding-quiz"),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Notifier publishes one message per room change on quiz.rooms.<CODE>.
type Notifier struct {
	nc *nats.Conn
}

func New(nc *nats.Conn) *Notifier {
	return &Notifier{nc: nc}
}

func Subject(code string) string {
	return "quiz.rooms." + code
}

func (n *Notifier) Publish(_ context.Context, code string) error {
	return n.nc.Publish(Subject(code), []byte(code))
}

// Listen calls fn for every change message on code. NATS delivers the
// messages of one subscription sequentially.
func (n *Notifier) Listen(code string, fn func()) (func(), error) {
	sub, err := n.nc.Subscribe(Subject(code), func(*nats.Msg) {
		fn()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Subject(code), err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				log.Warn().Err(err).Str("room", code).Msg("NATS unsubscribe failed")
			}
		})
	}, nil
}
