package store

import (
	"context"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/rs/zerolog/log"
)

// Notifying adds change subscriptions to a Store that has none of its own.
// Every successful write is followed by a signal on the Notifier, and
// subscribers re-read the room when signalled.
type Notifying struct {
	Store
	notifier Notifier
}

func WithNotifier(s Store, n Notifier) *Notifying {
	return &Notifying{Store: s, notifier: n}
}

func (n *Notifying) Create(ctx context.Context, code string, doc room.Document) (room.Document, error) {
	stored, err := n.Store.Create(ctx, code, doc)
	if err != nil {
		return stored, err
	}
	n.publish(ctx, code)
	return stored, nil
}

func (n *Notifying) Write(ctx context.Context, code string, doc room.Document) error {
	if err := n.Store.Write(ctx, code, doc); err != nil {
		return err
	}
	n.publish(ctx, code)
	return nil
}

func (n *Notifying) Patch(ctx context.Context, code string, fields ...room.Field) error {
	if err := n.Store.Patch(ctx, code, fields...); err != nil {
		return err
	}
	n.publish(ctx, code)
	return nil
}

func (n *Notifying) Subscribe(ctx context.Context, code string, fn func(room.Document)) (func(), error) {
	return n.notifier.Listen(code, func() {
		if ctx.Err() != nil {
			return
		}
		doc, err := n.Store.Read(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("room", code).Msg("re-read after change notification failed")
			return
		}
		fn(doc)
	})
}

// Notification failures are logged, never returned to the writer.
func (n *Notifying) publish(ctx context.Context, code string) {
	if err := n.notifier.Publish(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("change notification failed")
	}
}
