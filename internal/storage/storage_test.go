package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

type store interface {
	domain.HistoryStore
	domain.KVStore
}

// eachStore runs fn against every implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s store)) {
	log := logger.New(logger.LevelOff, nil)
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore(log)) })
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "deskmate.db"), log)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestHistoryRecent(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, msg := range []string{"one", "two", "three", "four"} {
			require.NoError(t, s.Append(ctx, domain.HistoryRecord{
				Context: "default", Role: "user", Content: msg, Timestamp: base.Add(time.Duration(i) * time.Second),
			}))
		}
		require.NoError(t, s.Append(ctx, domain.HistoryRecord{Context: "other", Role: "user", Content: "elsewhere", Timestamp: base}))

		recs, err := s.Recent(ctx, "default", 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "three", recs[0].Content)
		assert.Equal(t, "four", recs[1].Content)
		assert.True(t, recs[1].Timestamp.Equal(base.Add(3*time.Second)))

		all, err := s.Recent(ctx, "default", 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := s.Recent(ctx, "missing", 5)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestKV(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()

		_, err := s.Get(ctx, "notes", "groceries")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, s.Put(ctx, "notes", "groceries", "milk"))
		require.NoError(t, s.Put(ctx, "notes", "groceries", "milk, eggs"))
		require.NoError(t, s.Put(ctx, "notes", "call", "dentist"))
		require.NoError(t, s.Put(ctx, "contacts", "mom", "+15550100"))

		v, err := s.Get(ctx, "notes", "groceries")
		require.NoError(t, err)
		assert.Equal(t, "milk, eggs", v)

		notes, err := s.List(ctx, "notes")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"groceries": "milk, eggs", "call": "dentist"}, notes)

		require.NoError(t, s.Delete(ctx, "notes", "call"))
		assert.ErrorIs(t, s.Delete(ctx, "notes", "call"), domain.ErrNotFound)

		notes, err = s.List(ctx, "notes")
		require.NoError(t, err)
		assert.Len(t, notes, 1)

		empty, err := s.List(ctx, "habits")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "deskmate.db")

	s, err := OpenSQLite(ctx, path, log)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "notes", "k", "v"))
	require.NoError(t, s.Append(ctx, domain.HistoryRecord{Context: "default", Role: "assistant", Content: "hi"}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, log)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "notes", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	recs, err := s.Recent(ctx, "default", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "assistant", recs[0].Role)
	assert.False(t, recs[0].Timestamp.IsZero(), "zero timestamps are stamped on write")
}

func TestMemoryListIsACopy(t *testing.T) {
	s := NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "notes", "a", "1"))

	m, err := s.List(ctx, "notes")
	require.NoError(t, err)
	m["a"] = "changed"

	v, _ := s.Get(ctx, "notes", "a")
	assert.Equal(t, "1", v)
}
