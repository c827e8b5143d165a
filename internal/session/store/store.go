// SPDX-License-Identifier: MIT

// Package store persists conversation sessions. Backends share the Store
// contract; the engine assumes at most one in-flight mutator per
// conversation id and handles serialization itself.
package store

import (
	"context"
	"errors"

	"github.com/voxdesk/voxdesk/internal/session"
)

// ErrNotFound reports that no session exists under the given id.
var ErrNotFound = errors.New("session store: not found")

// Store is the external session persistence collaborator.
type Store interface {
	// Get returns the session for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*session.Session, error)
	// Save upserts the session and refreshes its TTL.
	Save(ctx context.Context, s *session.Session) error
	// Delete removes the session; deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// Close releases backend resources.
	Close() error
}
