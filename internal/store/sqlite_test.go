package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "roadmapd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	require.Error(t, err)
}

func TestSQLite_CreateGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := testProject(t, "proj-1", "user-1")

	require.NoError(t, s.Create(ctx, p))
	require.ErrorIs(t, s.Create(ctx, p), ErrExists)

	got, err := s.Get(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Goal, got.Goal)
	assert.Equal(t, p.Status, got.Status)
	assert.Equal(t, p.Position, got.Position)
	require.Len(t, got.Phases, 1)
	assert.Equal(t, p.Phases[0].Substeps[0].Title, got.Phases[0].Substeps[0].Title)

	_, err = s.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateCAS(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := testProject(t, "proj-1", "user-1")
	require.NoError(t, s.Create(ctx, p))

	loaded, err := s.Get(ctx, "proj-1")
	require.NoError(t, err)

	loaded.Goal = "Build a recipe manager with meal plans"
	loaded.UpdatedAt = loaded.UpdatedAt.Add(time.Second)
	require.NoError(t, s.Update(ctx, loaded, p.UpdatedAt))

	stale := p.Clone()
	err = s.Update(ctx, stale, p.UpdatedAt)
	require.ErrorIs(t, err, ErrConflict)

	got, err := s.Get(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "Build a recipe manager with meal plans", got.Goal)
}

func TestSQLite_UpdateMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(context.Background(), testProject(t, "ghost", "u"), time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, testProject(t, "proj-1", "u")))

	require.NoError(t, s.Delete(ctx, "proj-1"))
	require.ErrorIs(t, s.Delete(ctx, "proj-1"), ErrNotFound)
}

func TestSQLite_ListByUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := testProject(t, "a", "user-1")
	b := testProject(t, "b", "user-1")
	b.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	c := testProject(t, "c", "user-2")
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))
	require.NoError(t, s.Create(ctx, c))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// Most recently updated first.
	assert.Equal(t, "b", mine[0].ID)
	assert.Equal(t, "a", mine[1].ID)

	none, err := s.List(ctx, "user-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_StoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmapd.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, testProject(t, "proj-1", "u")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ID)
}
