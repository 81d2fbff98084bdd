// Package store persists room documents. Every backend honors the same
// merge rule: targeted writes replace single leaves and the last writer of
// a leaf wins.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/donok1/wedding-quiz/internal/room"
)

var (
	ErrNotFound  = errors.New("room not found")
	ErrMalformed = errors.New("room document is malformed")
)

// Store is the shared room document store.
type Store interface {
	// Read returns the stored document. It fails with ErrNotFound when the
	// room does not exist or its document cannot be decoded; the latter is
	// also wrapped with ErrMalformed.
	Read(ctx context.Context, code string) (room.Document, error)
	// Create stores doc unless a readable document already exists, and
	// returns whichever document is stored afterwards.
	Create(ctx context.Context, code string, doc room.Document) (room.Document, error)
	// Write overwrites the whole document.
	Write(ctx context.Context, code string, doc room.Document) error
	// Patch writes single leaves, creating the room with defaults first
	// when it does not exist.
	Patch(ctx context.Context, code string, fields ...room.Field) error
}

// Subscriber is implemented by stores that can push changes. fn receives
// the full document after every change; deliveries may repeat and are not
// ordered with respect to the caller's own in-flight writes.
type Subscriber interface {
	Subscribe(ctx context.Context, code string, fn func(room.Document)) (cancel func(), err error)
}

// ConnectivityError reports that the backing service could not be reached
// or failed to complete an operation.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a ConnectivityError for op. Context
// cancellation is passed through unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ConnectivityError{Op: op, Err: err}
}

// Malformed reports an undecodable document for code.
func Malformed(code string, err error) error {
	return fmt.Errorf("%w: %w: room %s: %v", ErrNotFound, ErrMalformed, code, err)
}

// IsConnectivity reports whether err came from an unreachable backend.
func IsConnectivity(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

// Key is the namespaced storage key of a room.
func Key(code string) string {
	return "quiz_" + code
}
