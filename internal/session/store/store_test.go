// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/session"
)

// openBackends builds one store per backend so the contract tests run
// against all of them.
func openBackends(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	redisStore := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	sqliteStore, err := NewSqliteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	badgerStore, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
		"sqlite": sqliteStore,
		"badger": badgerStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := st.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			s := session.New("conv-1", "tenant-1", dialog.ChannelVoice)
			s.TransitionTo(dialog.StateQualifName)
			s.Qualif.Name = "Durand"
			require.NoError(t, st.Save(ctx, s))

			got, err := st.Get(ctx, "conv-1")
			require.NoError(t, err)
			assert.Equal(t, dialog.StateQualifName, got.State)
			assert.Equal(t, "Durand", got.Qualif.Name)
			assert.Equal(t, session.DefaultTransferBudget, got.TransferBudgetRemaining)

			// Save is an upsert.
			got.TurnCount = 7
			require.NoError(t, st.Save(ctx, got))
			again, err := st.Get(ctx, "conv-1")
			require.NoError(t, err)
			assert.Equal(t, 7, again.TurnCount)

			require.NoError(t, st.Delete(ctx, "conv-1"))
			_, err = st.Get(ctx, "conv-1")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting a missing session is not an error.
			assert.NoError(t, st.Delete(ctx, "conv-1"))
		})
	}
}

func TestMemoryStoreTTLLapse(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, st.Save(ctx, session.New("conv-ttl", "", dialog.ChannelChat)))

	now = now.Add(session.TTL - time.Second)
	_, err := st.Get(ctx, "conv-ttl")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = st.Get(ctx, "conv-ttl")
	assert.ErrorIs(t, err, ErrNotFound, "lapsed TTL must read as absence")
}

func TestRedisStoreTTLLapse(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	st := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Save(ctx, session.New("conv-ttl", "", dialog.ChannelVoice)))

	mr.FastForward(session.TTL + time.Second)
	_, err := st.Get(ctx, "conv-ttl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqliteStoreSweep(t *testing.T) {
	t.Parallel()

	st, err := NewSqliteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Save(ctx, session.New("conv-a", "", dialog.ChannelVoice)))

	// Force the row into the past so the sweep collects it.
	_, err = st.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at_ms = ? WHERE conv_id = ?`,
		time.Now().Add(-time.Minute).UnixMilli(), "conv-a")
	require.NoError(t, err)

	n, err := st.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = st.Get(ctx, "conv-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenFactory(t *testing.T) {
	t.Parallel()

	st, err := Open(Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	_, err = Open(Options{Backend: "sqlite"})
	assert.Error(t, err, "sqlite without a path must fail")

	_, err = Open(Options{Backend: "cassandra"})
	assert.Error(t, err)
}
