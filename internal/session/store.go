package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Store keeps sessions by id. Every operation is atomic per key and callers
// only ever see copies, so mutating a returned session has no effect until
// it is written back.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// Update runs fn on a copy of the stored session and commits the copy
	// only if fn returns nil. Concurrent updates of one id are serialized.
	Update(ctx context.Context, id string, fn func(*Session) error) error
}
