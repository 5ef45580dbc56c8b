package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Repo.Load when nothing has been saved.
var ErrNotFound = errors.New("session not found")

// Repo is the durable mirror of the session so it survives a restart. The CSRF
// token is deliberately not part of it.
type Repo interface {
	// Load returns the saved session or ErrNotFound
	Load(ctx context.Context) (*Session, error)

	// Save replaces the saved session
	Save(ctx context.Context, session *Session) error

	// Remove deletes the saved session, succeeding when there is none
	Remove(ctx context.Context) error
}
