// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	reloaded := make(chan struct{}, 1)
	w := NewWatcher(path, "catalogue", func() error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not triggered by file write")
	}
}

func TestWatcherEmptyPathIsNoop(t *testing.T) {
	var calls atomic.Int32
	w := NewWatcher("", "catalogue", func() error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	w.Stop()
	assert.Zero(t, calls.Load())
}

func TestWatcherKeepsSnapshotOnFailedReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	attempted := make(chan struct{}, 1)
	w := NewWatcher(path, "catalogue", func() error {
		select {
		case attempted <- struct{}{}:
		default:
		}
		return assert.AnError
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("broken"), 0o600))

	// The failed reload must be attempted and survived, not crash the
	// watcher loop.
	select {
	case <-attempted:
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not attempted")
	}
}
