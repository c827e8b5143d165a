// SPDX-License-Identifier: MIT

package store

import (
	"fmt"

	"github.com/voxdesk/voxdesk/internal/log"
)

// Options selects and configures a session store backend.
type Options struct {
	// Backend is one of "memory", "redis", "sqlite", "badger".
	Backend string
	// Path is the database file (sqlite) or directory (badger).
	Path string
	// Redis holds connection details when Backend is "redis".
	Redis RedisConfig
}

// Open builds the configured session store backend.
func Open(opts Options) (Store, error) {
	logger := log.WithComponent("store")

	switch opts.Backend {
	case "", "memory":
		logger.Info().Str("backend", "memory").Msg("session store opened")
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(opts.Redis)
	case "sqlite":
		if opts.Path == "" {
			return nil, fmt.Errorf("session store: sqlite backend requires a path")
		}
		s, err := NewSqliteStore(opts.Path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", "sqlite").Str("path", opts.Path).Msg("session store opened")
		return s, nil
	case "badger":
		if opts.Path == "" {
			return nil, fmt.Errorf("session store: badger backend requires a path")
		}
		s, err := NewBadgerStore(opts.Path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", "badger").Str("path", opts.Path).Msg("session store opened")
		return s, nil
	default:
		return nil, fmt.Errorf("session store: unknown backend %q (use memory, redis, sqlite or badger)", opts.Backend)
	}
}
