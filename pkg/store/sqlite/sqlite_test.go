package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "spendwise.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) api.Store { return newTestStore(t) })
}

func TestNew_ReopensExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "spendwise.db")

	s, err := New(ctx, path, nil)
	require.NoError(t, err)
	owner, err := s.CreateOwner(ctx, "a@example.com")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.OwnerExists(ctx, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New(context.Background(), "", nil)
	require.ErrorIs(t, err, api.ErrMissingField)
}
