package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popframe/internal/config"
	"github.com/sells-group/popframe/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunKindAgglomeration, map[string]any{"base_time": 80})
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunKindAgglomeration, got.Kind)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.JSONEq(t, `{"base_time":80}`, string(got.Params))
		assert.Nil(t, got.Summary)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunKindNetwork, nil)
		require.NoError(t, err)

		summary := &model.RunSummary{Settlements: 12, Edges: 11, DurationMs: 40}
		require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Summary)
		assert.Equal(t, *summary, *got.Summary)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunKindAnalysis, nil)
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, "boundary is not polygonal"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "boundary is not polygonal", got.Error)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetRun(ctx, "nonexistent-id")
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrNotFound))

		err = s.CompleteRun(ctx, "nonexistent-id", &model.RunSummary{})
		assert.True(t, eris.Is(err, model.ErrNotFound))

		err = s.FailRun(ctx, "nonexistent-id", "x")
		assert.True(t, eris.Is(err, model.ErrNotFound))
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, model.RunKindNetwork, nil)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.RunKindAgglomeration, nil)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.RunKindAgglomeration, nil)
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, a.ID, &model.RunSummary{}))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		aggs, err := s.ListRuns(ctx, RunFilter{Kind: model.RunKindAgglomeration})
		require.NoError(t, err)
		assert.Len(t, aggs, 2)

		done, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, a.ID, done[0].ID)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close() //nolint:errcheck

	_, err = s.CreateRun(ctx, model.RunKindNetwork, nil)
	assert.NoError(t, err)

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}
