// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/voxdesk/voxdesk/internal/log"
	"github.com/voxdesk/voxdesk/internal/session"
)

// BadgerStore persists sessions in an embedded Badger database using the
// entry-level TTL, so expiry needs no sweeper.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database directory at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogAdapter{}).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("session store: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get loads a session; Badger hides expired entries itself.
func (b *BadgerStore) Get(_ context.Context, id string) (*session.Session, error) {
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store: badger get: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session store: decode session: %w", err)
	}
	return &s, nil
}

// Save upserts the session with a refreshed entry TTL.
func (b *BadgerStore) Save(_ context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session store: encode session: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(s.ConvID), raw).WithTTL(session.TTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("session store: badger set: %w", err)
	}
	return nil
}

// Delete removes the session entry.
func (b *BadgerStore) Delete(_ context.Context, id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("session store: badger delete: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// badgerLogAdapter routes Badger's internal logging through zerolog.
type badgerLogAdapter struct{}

func (badgerLogAdapter) Errorf(format string, args ...interface{}) {
	logger := log.WithComponent("store")
	logger.Error().Msgf(format, args...)
}

func (badgerLogAdapter) Warningf(format string, args ...interface{}) {
	logger := log.WithComponent("store")
	logger.Warn().Msgf(format, args...)
}

func (badgerLogAdapter) Infof(format string, args ...interface{}) {
	logger := log.WithComponent("store")
	logger.Debug().Msgf(format, args...)
}

func (badgerLogAdapter) Debugf(format string, args ...interface{}) {
	logger := log.WithComponent("store")
	logger.Debug().Msgf(format, args...)
}
